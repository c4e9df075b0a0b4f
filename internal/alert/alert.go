// Package alert delivers structured failure events to a webhook channel.
// Delivery is fire-and-forget: it must never block or fail a search.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dharmasatrya/awardsearch/internal/models"
)

// Event describes one unexpected strategy failure.
type Event struct {
	Airline     string       `json:"airline"`
	Strategy    string       `json:"strategy"`
	Origin      string       `json:"origin"`
	Destination string       `json:"destination"`
	Date        string       `json:"date"`
	Cabin       models.Cabin `json:"cabin"`
	Adults      int          `json:"adults"`
	Reason      string       `json:"reason"`
}

// Sink receives failure events. Implementations must not block the caller.
type Sink interface {
	StrategyFailed(ctx context.Context, ev Event)
}

// Webhook posts events to a notification endpoint.
type Webhook struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

func NewWebhook(url string, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	return &Webhook{
		client: client,
		url:    url,
		logger: logger,
	}
}

// StrategyFailed posts the event in a background goroutine. Errors are
// logged and dropped; a dead webhook never stalls a search.
func (w *Webhook) StrategyFailed(ctx context.Context, ev Event) {
	go func() {
		_, err := w.client.R().
			SetBody(ev).
			Post(w.url)
		if err != nil {
			w.logger.Warn("alert delivery failed",
				"airline", ev.Airline, "strategy", ev.Strategy, "err", err)
		}
	}()
}

// Noop drops all events. Used when no webhook is configured and in tests.
type Noop struct{}

func (Noop) StrategyFailed(ctx context.Context, ev Event) {}
