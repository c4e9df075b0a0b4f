// Package airlines holds the per-airline strategy chains. Each airline
// registers an ordered list of strategies, cheapest first: a direct API
// replay when stored session credentials exist, then a full stealth
// browser that mints fresh ones.
package airlines

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/dharmasatrya/awardsearch/internal/engine"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
)

// Config carries the tunables shared by every chain. Zero values fall back
// to the defaults observed to work against these targets.
type Config struct {
	NavigateTimeout time.Duration
	CaptureTimeout  time.Duration
}

// BuildRegistry wires every supported airline into an engine registry.
func BuildRegistry(cfg Config, logger *slog.Logger) *engine.Registry {
	registry := engine.NewRegistry()

	registry.Register(engine.Airline{
		Code: "delta",
		Strategies: []strategy.Strategy{
			NewDeltaAPIStrategy(cfg.CaptureTimeout, logger),
			NewBrowserStrategy(BrowserConfig{
				StrategyName:     "delta_browser",
				Target:           deltaTarget,
				SearchURL:        deltaSearchURL,
				APIPath:          "/shop/ow/search",
				APIMethod:        "POST",
				NoResultSelector: ".no-flights-message",
				BlockedSelector:  "#challenge-form",
				NavigateTimeout:  cfg.NavigateTimeout,
				CaptureTimeout:   cfg.CaptureTimeout,
				Parse: func(body []byte, criteria models.SearchCriteria) ([]models.Offer, error) {
					return parseDeltaShop(body, criteria, false, logger)
				},
			}, logger),
		},
	})

	registry.Register(engine.Airline{
		Code: "virginatlantic",
		Strategies: []strategy.Strategy{
			NewBrowserStrategy(BrowserConfig{
				StrategyName:     "virgin_browser",
				Target:           virginTarget,
				SearchURL:        VirginSearchURL,
				APIPath:          "/flight-search/api/search",
				APIMethod:        "POST",
				NoResultSelector: "[data-testid='no-results-banner']",
				BlockedSelector:  "#px-captcha",
				NavigateTimeout:  cfg.NavigateTimeout,
				CaptureTimeout:   cfg.CaptureTimeout,
				Parse:            ParseVirginSearch,
			}, logger),
		},
		// Virgin Atlantic's award search has no First product.
		CheckCabin: func(c models.Cabin) error {
			if c == models.CabinFirst {
				return fmt.Errorf("virginatlantic does not sell first class awards")
			}
			return nil
		},
	})

	return registry
}

func deltaSearchURL(criteria models.SearchCriteria) string {
	q := url.Values{}
	q.Set("origin", criteria.Origin)
	q.Set("destination", criteria.Destination)
	q.Set("departureDate", criteria.DepartureDate)
	q.Set("paxCount", strconv.Itoa(criteria.Adults))
	q.Set("shopWithMiles", "true")
	if code, ok := deltaCabinCodes[criteria.CabinClass]; ok {
		q.Set("cabin", code)
	}
	return "https://www.delta.com/flight-search/search-results?" + q.Encode()
}
