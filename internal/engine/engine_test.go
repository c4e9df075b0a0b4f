package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/awardsearch/internal/alert"
	"github.com/dharmasatrya/awardsearch/internal/capture"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
)

type fakeStrategy struct {
	name     string
	offers   []models.Offer
	err      error
	calls    int
	captures []*capture.Controller
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Run(ctx context.Context, criteria models.SearchCriteria, deps strategy.Deps) ([]models.Offer, error) {
	f.calls++
	f.captures = append(f.captures, deps.Capture)
	return f.offers, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []alert.Event
}

func (r *recordingSink) StrategyFailed(ctx context.Context, ev alert.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var fixedNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func testOffers(n int) []models.Offer {
	offers := make([]models.Offer, n)
	for i := range offers {
		offers[i] = models.Offer{
			Airline:      "VS",
			Origin:       "JFK",
			Destination:  "LHR",
			AirlineCabin: "Saver",
			Segments: []models.FlightSegment{{
				Origin:       "JFK",
				Destination:  "LHR",
				FlightNumber: fmt.Sprintf("VS%d", i+4),
			}},
		}
	}
	return offers
}

func testCriteria() models.SearchCriteria {
	return models.SearchCriteria{
		Origin:        "JFK",
		Destination:   "LHR",
		DepartureDate: "2026-09-02",
		CabinClass:    models.CabinEconomy,
		Adults:        1,
	}
}

func newTestEngine(airline Airline, sink alert.Sink, attempts int) *Engine {
	registry := NewRegistry()
	registry.Register(airline)
	eng := New(registry, strategy.Deps{}, sink, Config{
		Attempts:        attempts,
		StrategyTimeout: time.Second,
		RetryDelays:     []time.Duration{time.Millisecond},
	}, nil)
	eng.now = func() time.Time { return fixedNow }
	return eng
}

func TestStopsAtFirstSuccessfulStrategy(t *testing.T) {
	first := &fakeStrategy{name: "api", offers: testOffers(1)}
	second := &fakeStrategy{name: "browser", offers: testOffers(5)}
	eng := newTestEngine(Airline{Code: "virginatlantic", Strategies: []strategy.Strategy{first, second}}, nil, 5)

	offers, err := eng.Search(context.Background(), "virginatlantic", testCriteria())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 0, second.calls)
}

func TestInvalidCriteriaInvokesNoStrategy(t *testing.T) {
	strat := &fakeStrategy{name: "api", offers: testOffers(1)}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{strat}}, nil, 5)

	for _, criteria := range []models.SearchCriteria{
		{Origin: "JFKX", Destination: "LHR", DepartureDate: "2026-09-02", CabinClass: models.CabinEconomy, Adults: 1},
		{Origin: "JFK", Destination: "LH", DepartureDate: "2026-09-02", CabinClass: models.CabinEconomy, Adults: 1},
		{Origin: "JFK", Destination: "LHR", DepartureDate: "2026-08-30", CabinClass: models.CabinEconomy, Adults: 1},
	} {
		offers, err := eng.Search(context.Background(), "delta", criteria)
		require.NoError(t, err)
		require.Empty(t, offers)
	}
	require.Equal(t, 0, strat.calls)
}

func TestCabinRestrictionShortCircuits(t *testing.T) {
	strat := &fakeStrategy{name: "browser", offers: testOffers(1)}
	eng := newTestEngine(Airline{
		Code:       "virginatlantic",
		Strategies: []strategy.Strategy{strat},
		CheckCabin: func(c models.Cabin) error {
			if c == models.CabinFirst {
				return errors.New("no first class awards")
			}
			return nil
		},
	}, nil, 5)

	criteria := testCriteria()
	criteria.CabinClass = models.CabinFirst

	offers, err := eng.Search(context.Background(), "virginatlantic", criteria)
	require.NoError(t, err)
	require.Empty(t, offers)
	require.Equal(t, 0, strat.calls)
}

// Two transient failures then a success: the engine falls through to the
// third strategy, returns its offers, and alerts once per failed strategy.
func TestFallbackWithAlerts(t *testing.T) {
	sink := &recordingSink{}
	first := &fakeStrategy{name: "api", err: errors.New("blocked")}
	second := &fakeStrategy{name: "replay", err: errors.New("credentials stale")}
	third := &fakeStrategy{name: "browser", offers: testOffers(2)}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{first, second, third}}, sink, 5)

	offers, err := eng.Search(context.Background(), "delta", testCriteria())
	require.NoError(t, err)
	require.Len(t, offers, 2)
	require.Equal(t, 2, sink.count())
	require.Equal(t, "api", sink.events[0].Strategy)
	require.Equal(t, "replay", sink.events[1].Strategy)
	require.Equal(t, "JFK", sink.events[0].Origin)
	require.Equal(t, "LHR", sink.events[0].Destination)
}

// Confirmed no-availability is terminal for the airline: no fallback, no
// retries, no alerts.
func TestNoAvailabilityIsTerminalAndSilent(t *testing.T) {
	sink := &recordingSink{}
	first := &fakeStrategy{name: "api", err: models.ErrNoAvailability}
	second := &fakeStrategy{name: "browser", offers: testOffers(3)}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{first, second}}, sink, 5)

	offers, err := eng.Search(context.Background(), "delta", testCriteria())
	require.NoError(t, err)
	require.Empty(t, offers)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 0, second.calls)
	require.Equal(t, 0, sink.count())
}

func TestEmptySuccessTreatedAsNoAvailability(t *testing.T) {
	sink := &recordingSink{}
	strat := &fakeStrategy{name: "api"}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{strat}}, sink, 5)

	offers, err := eng.Search(context.Background(), "delta", testCriteria())
	require.NoError(t, err)
	require.Empty(t, offers)
	require.Equal(t, 1, strat.calls)
	require.Equal(t, 0, sink.count())
}

// An empty credential pool triggers the next strategy without an alert;
// alerts are reserved for unexpected failures.
func TestCredentialExhaustionFallsBackSilently(t *testing.T) {
	sink := &recordingSink{}
	first := &fakeStrategy{name: "api", err: models.ErrNoActiveCredentials}
	second := &fakeStrategy{name: "browser", offers: testOffers(1)}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{first, second}}, sink, 5)

	offers, err := eng.Search(context.Background(), "delta", testCriteria())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Equal(t, 0, sink.count())
}

// Capture state must not leak between searches; only the session store is
// shared. Every Search call hands its strategies a fresh controller.
func TestEachSearchGetsFreshCaptureController(t *testing.T) {
	strat := &fakeStrategy{name: "api", offers: testOffers(1)}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{strat}}, nil, 5)

	_, err := eng.Search(context.Background(), "delta", testCriteria())
	require.NoError(t, err)
	_, err = eng.Search(context.Background(), "delta", testCriteria())
	require.NoError(t, err)

	require.Len(t, strat.captures, 2)
	require.NotNil(t, strat.captures[0])
	require.NotNil(t, strat.captures[1])
	require.NotSame(t, strat.captures[0], strat.captures[1])
}

func TestAllStrategiesFailedAfterRetries(t *testing.T) {
	first := &fakeStrategy{name: "api", err: errors.New("blocked")}
	second := &fakeStrategy{name: "browser", err: errors.New("captcha")}
	eng := newTestEngine(Airline{Code: "delta", Strategies: []strategy.Strategy{first, second}}, nil, 3)

	_, err := eng.Search(context.Background(), "delta", testCriteria())
	require.ErrorIs(t, err, models.ErrAllStrategiesFailed)
	require.Equal(t, 3, first.calls)
	require.Equal(t, 3, second.calls)
}

func TestUnknownAirline(t *testing.T) {
	eng := newTestEngine(Airline{Code: "delta"}, nil, 1)

	_, err := eng.Search(context.Background(), "concorde", testCriteria())
	require.Error(t, err)
}
