package filter

import (
	"sort"
	"strings"

	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/ranking"
)

// Options narrows and orders a result set after the engine returns it.
type Options struct {
	MaxPoints   *int     `json:"max_points,omitempty"`
	MaxFee      *float64 `json:"max_fee,omitempty"`
	MaxStops    *int     `json:"max_stops,omitempty"`
	MaxDuration *int     `json:"max_duration,omitempty"`

	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

func Apply(offers []models.Offer, opts *Options) []models.Offer {
	if opts == nil {
		opts = &Options{}
	}

	filtered := applyFilters(offers, opts)

	if opts.SortBy == "best_value" {
		filtered = ranking.CalculateScores(filtered)
	}

	return applySort(filtered, opts.SortBy, opts.SortOrder)
}

func applyFilters(offers []models.Offer, opts *Options) []models.Offer {
	result := make([]models.Offer, 0, len(offers))

	for _, o := range offers {
		if matches(o, opts) {
			result = append(result, o)
		}
	}

	return result
}

func matches(o models.Offer, opts *Options) bool {
	if opts.MaxPoints != nil {
		if o.Points == nil || *o.Points > *opts.MaxPoints {
			return false
		}
	}
	if opts.MaxFee != nil && o.CashFee.Amount != nil && *o.CashFee.Amount > *opts.MaxFee {
		return false
	}
	if opts.MaxStops != nil && o.Stops() > *opts.MaxStops {
		return false
	}
	if opts.MaxDuration != nil && o.Duration > *opts.MaxDuration {
		return false
	}
	return true
}

// pointsOrMax sorts offers without a points price last.
func pointsOrMax(o models.Offer) int {
	if o.Points == nil {
		return int(^uint(0) >> 1)
	}
	return *o.Points
}

func applySort(offers []models.Offer, sortBy, sortOrder string) []models.Offer {
	if len(offers) == 0 {
		return offers
	}

	ascending := strings.ToLower(sortOrder) != "desc"

	switch strings.ToLower(sortBy) {
	case "duration":
		sort.SliceStable(offers, func(i, j int) bool {
			if ascending {
				return offers[i].Duration < offers[j].Duration
			}
			return offers[i].Duration > offers[j].Duration
		})

	case "stops":
		sort.SliceStable(offers, func(i, j int) bool {
			if ascending {
				return offers[i].Stops() < offers[j].Stops()
			}
			return offers[i].Stops() > offers[j].Stops()
		})

	case "best_value":
		sort.SliceStable(offers, func(i, j int) bool {
			if ascending {
				return offers[i].ValueScore < offers[j].ValueScore
			}
			return offers[i].ValueScore > offers[j].ValueScore
		})

	case "points":
		fallthrough
	default:
		sort.SliceStable(offers, func(i, j int) bool {
			if ascending {
				return pointsOrMax(offers[i]) < pointsOrMax(offers[j])
			}
			return pointsOrMax(offers[i]) > pointsOrMax(offers[j])
		})
	}

	return offers
}
