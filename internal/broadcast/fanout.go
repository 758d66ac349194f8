package broadcast

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Summary struct {
	Total  int
	Sent   int
	Failed int
}

// Fanout sends one message per recipient, one at a time, no faster than
// the configured interval.
type Fanout struct {
	bot     Sender
	limiter *rate.Limiter
}

func NewFanout(bot Sender, interval time.Duration) *Fanout {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Fanout{bot: bot, limiter: rate.NewLimiter(limit, 1)}
}

// Body is what every recipient receives.
func Body(text string) string {
	return "📢 *Broadcast from Admin*\n\n" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

// Send never stops on a failed recipient. When ctx ends early the remaining
// recipients are counted as failed, so Sent+Failed always equals Total.
func (f *Fanout) Send(ctx context.Context, recipients []int64, text string) Summary {
	s := Summary{Total: len(recipients)}
	body := Body(text)
	for i, id := range recipients {
		if err := f.limiter.Wait(ctx); err != nil {
			s.Failed += len(recipients) - i
			log.Warn().Err(err).Int("left", len(recipients)-i).Msg("broadcast interrupted")
			break
		}
		m := tgbotapi.NewMessage(id, body)
		m.ParseMode = tgbotapi.ModeMarkdown
		if _, err := f.bot.Send(m); err != nil {
			s.Failed++
			log.Warn().Err(err).Int64("user_id", id).Msg("broadcast send failed")
			continue
		}
		s.Sent++
	}
	log.Info().Int("total", s.Total).Int("sent", s.Sent).Int("failed", s.Failed).Msg("broadcast done")
	return s
}
