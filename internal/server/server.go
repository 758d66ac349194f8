// Package server is the bot's HTTP surface: liveness endpoints and, in
// webhook mode, the Telegram update receiver.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// UpdateDecoder is satisfied by *tgbotapi.BotAPI.
type UpdateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// JSONDecoder reads an update from the request body.
type JSONDecoder struct{}

func (JSONDecoder) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

type Options struct {
	Logger zerolog.Logger
	// Token is the secret path segment of the webhook. The webhook route
	// exists only when Updates is set.
	Token   string
	Updates chan<- tgbotapi.Update
	Decoder UpdateDecoder
}

func NewRouter(o Options) http.Handler {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(o.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("size", size).
			Dur("took", d).
			Msg("http")
	}))
	r.Use(chimw.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Bot is running!"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	if o.Updates != nil {
		dec := o.Decoder
		if dec == nil {
			dec = JSONDecoder{}
		}
		r.Post("/{token}", webhook(o.Token, o.Updates, dec))
	}
	return r
}

func webhook(token string, updates chan<- tgbotapi.Update, dec UpdateDecoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token == "" || chi.URLParam(r, "token") != token {
			http.NotFound(w, r)
			return
		}
		upd, err := dec.HandleUpdate(r)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("bad update")
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		select {
		case updates <- *upd:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}
	}
}

// New wraps the router in an http.Server with sane timeouts.
func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
