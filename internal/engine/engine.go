// Package engine runs an airline's ordered strategy chain until one
// strategy yields offers, handling validation, retries, partial failure,
// and alerting.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dharmasatrya/awardsearch/internal/alert"
	"github.com/dharmasatrya/awardsearch/internal/capture"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/ratelimit"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
)

type Config struct {
	// Attempts is how many times the whole strategy chain is retried when
	// every strategy fails without a terminal "no result".
	Attempts int

	// StrategyTimeout bounds one strategy invocation, browser included.
	StrategyTimeout time.Duration

	// RetryDelays paces full-chain retries; the last entry repeats.
	RetryDelays []time.Duration

	RateLimiter *ratelimit.AirlineLimiter
}

func (c *Config) defaults() {
	if c.Attempts <= 0 {
		c.Attempts = 5
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 200 * time.Second
	}
	if len(c.RetryDelays) == 0 {
		c.RetryDelays = []time.Duration{
			1 * time.Second,
			2 * time.Second,
			5 * time.Second,
		}
	}
}

type Engine struct {
	registry *Registry
	deps     strategy.Deps
	alerts   alert.Sink
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

func New(registry *Registry, deps strategy.Deps, alerts alert.Sink, config Config, logger *slog.Logger) *Engine {
	config.defaults()
	if alerts == nil {
		alerts = alert.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry: registry,
		deps:     deps,
		alerts:   alerts,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Search tries the airline's strategies in priority order and returns the
// first non-empty result. Invalid criteria and confirmed no-availability
// both surface as an empty result; only full exhaustion is an error.
func (e *Engine) Search(ctx context.Context, airlineCode string, criteria models.SearchCriteria) ([]models.Offer, error) {
	airline, ok := e.registry.Get(airlineCode)
	if !ok {
		return nil, fmt.Errorf("unknown airline %q", airlineCode)
	}

	criteria.Normalize()
	if err := criteria.Validate(e.now()); err != nil {
		e.logger.Info("criteria rejected before search",
			"airline", airline.Code, "err", err)
		return []models.Offer{}, nil
	}
	if airline.CheckCabin != nil {
		if err := airline.CheckCabin(criteria.CabinClass); err != nil {
			e.logger.Info("cabin not searchable on this airline",
				"airline", airline.Code, "cabin", criteria.CabinClass, "err", err)
			return []models.Offer{}, nil
		}
	}

	if e.config.RateLimiter != nil {
		if err := e.config.RateLimiter.Wait(ctx, airline.Code); err != nil {
			return nil, err
		}
	}

	// Each search gets its own capture controller so concurrent searches
	// cannot consume each other's responses. The session store is the only
	// dependency shared across searches.
	deps := e.deps
	deps.Capture = capture.NewController()

	var lastErr error
	for attempt := 0; attempt < e.config.Attempts; attempt++ {
		if attempt > 0 {
			if err := e.sleepBeforeRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		offers, done, err := e.runChain(ctx, airline, criteria, deps)
		if done {
			return offers, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", models.ErrAllStrategiesFailed, lastErr)
}

// runChain walks the strategy chain once. done=true means the outcome is
// terminal for the airline: offers were found, availability was confirmed
// absent, or the context died. done=false means every strategy failed and
// the chain may be retried.
func (e *Engine) runChain(ctx context.Context, airline Airline, criteria models.SearchCriteria, deps strategy.Deps) ([]models.Offer, bool, error) {
	var lastErr error

	for _, strat := range airline.Strategies {
		select {
		case <-ctx.Done():
			return nil, true, ctx.Err()
		default:
		}

		offers, err := e.runStrategy(ctx, strat, criteria, deps)
		if err == nil {
			if len(offers) > 0 {
				e.logger.Info("strategy succeeded",
					"airline", airline.Code, "strategy", strat.Name(), "offers", len(offers))
				return offers, true, nil
			}
			// A silent empty success is a confirmed absence, same as an
			// explicit no-availability signal.
			err = models.ErrNoAvailability
		}

		if errors.Is(err, models.ErrNoAvailability) {
			e.logger.Info("no availability confirmed",
				"airline", airline.Code, "strategy", strat.Name())
			return []models.Offer{}, true, nil
		}

		lastErr = strategy.NewError(strat.Name(), err)

		// An empty credential pool is the expected trigger for the next
		// strategy, not an incident worth alerting on.
		if errors.Is(err, models.ErrNoActiveCredentials) {
			e.logger.Info("no stored credentials, falling back",
				"airline", airline.Code, "strategy", strat.Name())
			continue
		}

		e.logger.Warn("strategy failed, falling back",
			"airline", airline.Code, "strategy", strat.Name(), "err", err)
		e.alerts.StrategyFailed(ctx, alert.Event{
			Airline:     airline.Code,
			Strategy:    strat.Name(),
			Origin:      criteria.Origin,
			Destination: criteria.Destination,
			Date:        criteria.DepartureDate,
			Cabin:       criteria.CabinClass,
			Adults:      criteria.Adults,
			Reason:      err.Error(),
		})
	}

	return nil, false, lastErr
}

func (e *Engine) runStrategy(ctx context.Context, strat strategy.Strategy, criteria models.SearchCriteria, deps strategy.Deps) ([]models.Offer, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.config.StrategyTimeout)
	defer cancel()
	return strat.Run(runCtx, criteria, deps)
}

func (e *Engine) sleepBeforeRetry(ctx context.Context, attempt int) error {
	delayIdx := attempt - 1
	if delayIdx >= len(e.config.RetryDelays) {
		delayIdx = len(e.config.RetryDelays) - 1
	}

	select {
	case <-time.After(e.config.RetryDelays[delayIdx]):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
