package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdStart
	CmdHelp
	CmdStats
	CmdBroadcast
)

type Command struct {
	Kind CommandKind
	Name string
	Args string
}

func ParseCommand(m *tgbotapi.Message) Command {
	c := Command{Name: m.Command(), Args: strings.TrimSpace(m.CommandArguments())}
	switch c.Name {
	case "start":
		c.Kind = CmdStart
	case "help":
		c.Kind = CmdHelp
	case "stats":
		c.Kind = CmdStats
	case "broadcast":
		c.Kind = CmdBroadcast
	}
	return c
}

type CallbackKind int

const (
	CbUnknown CallbackKind = iota
	CbHelp
	CbDownloadAnother
	CbConfirmBroadcast
	CbCancelBroadcast
)

// Callback data strings.
const (
	dataHelp            = "help_callback"
	dataDownloadAnother = "download_another"
	dataConfirmPrefix   = "confirm_broadcast_"
	dataCancel          = "cancel_broadcast"
	dataCancelPrefix    = dataCancel + "_"
)

type Callback struct {
	Kind  CallbackKind
	Token string // broadcast request id, "" for a bare cancel
}

func ParseCallback(data string) Callback {
	switch {
	case data == dataHelp:
		return Callback{Kind: CbHelp}
	case data == dataDownloadAnother:
		return Callback{Kind: CbDownloadAnother}
	case data == dataCancel:
		return Callback{Kind: CbCancelBroadcast}
	case strings.HasPrefix(data, dataCancelPrefix) && len(data) > len(dataCancelPrefix):
		return Callback{Kind: CbCancelBroadcast, Token: strings.TrimPrefix(data, dataCancelPrefix)}
	case strings.HasPrefix(data, dataConfirmPrefix) && len(data) > len(dataConfirmPrefix):
		return Callback{Kind: CbConfirmBroadcast, Token: strings.TrimPrefix(data, dataConfirmPrefix)}
	}
	return Callback{Kind: CbUnknown}
}

func confirmData(id string) string { return dataConfirmPrefix + id }
func cancelData(id string) string  { return dataCancelPrefix + id }
