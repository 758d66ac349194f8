package orchestrator

import (
	"github.com/wapuda/rei-assistant/internal/jobs"
	"github.com/wapuda/rei-assistant/internal/store"
)

// Payload is the queued form of r.
func (r Request) Payload() jobs.DownloadPayload {
	if r.JobID == "" {
		r.JobID = jobs.NewID()
	}
	p := r.Profile
	return jobs.DownloadPayload{
		JobID:     r.JobID,
		ChatID:    r.ChatID,
		MessageID: r.MessageID,
		From: jobs.Sender{
			ID:        p.ID,
			Username:  p.Username,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Language:  p.Language,
		},
		Text: r.Text,
	}
}

func RequestFromPayload(p jobs.DownloadPayload) Request {
	return Request{
		JobID:     p.JobID,
		ChatID:    p.ChatID,
		MessageID: p.MessageID,
		Profile: store.Profile{
			ID:        p.From.ID,
			Username:  p.From.Username,
			FirstName: p.From.FirstName,
			LastName:  p.From.LastName,
			Language:  p.From.Language,
		},
		Text: p.Text,
	}
}
