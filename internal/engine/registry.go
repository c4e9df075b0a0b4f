package engine

import (
	"strings"

	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
)

// Airline is one registered carrier: an ordered list of strategies
// (cheapest and most reliable first) plus its cabin restrictions.
type Airline struct {
	Code       string
	Strategies []strategy.Strategy

	// CheckCabin rejects cabins the airline's award search cannot serve.
	// Nil means every cabin is accepted.
	CheckCabin func(models.Cabin) error
}

// Registry maps airline codes to their strategy chains. Registration
// happens at startup; lookups are read-only afterwards.
type Registry struct {
	airlines map[string]Airline
}

func NewRegistry() *Registry {
	return &Registry{
		airlines: make(map[string]Airline),
	}
}

func (r *Registry) Register(a Airline) {
	r.airlines[strings.ToLower(a.Code)] = a
}

func (r *Registry) Get(code string) (Airline, bool) {
	a, ok := r.airlines[strings.ToLower(code)]
	return a, ok
}

func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.airlines))
	for code := range r.airlines {
		codes = append(codes, code)
	}
	return codes
}
