package models

import (
	"strings"
	"time"
)

// SearchCriteria describes one award search. It is immutable for the
// duration of a search; CabinAll is expanded inside a strategy, never by
// the engine.
type SearchCriteria struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	CabinClass    Cabin  `json:"cabin_class"`
	Adults        int    `json:"adults"`
}

func (c *SearchCriteria) Normalize() {
	c.Origin = strings.ToUpper(strings.TrimSpace(c.Origin))
	c.Destination = strings.ToUpper(strings.TrimSpace(c.Destination))
	if c.CabinClass == "" {
		c.CabinClass = CabinEconomy
	}
	if c.Adults <= 0 {
		c.Adults = 1
	}
}

// Validate rejects criteria before any network or browser work happens.
// now is injected so date checks are testable.
func (c SearchCriteria) Validate(now time.Time) error {
	if len(c.Origin) != 3 {
		return ErrBadOrigin
	}
	if len(c.Destination) != 3 {
		return ErrBadDestination
	}
	dep, err := time.Parse("2006-01-02", c.DepartureDate)
	if err != nil {
		return ErrBadDepartureDate
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if dep.Before(today) {
		return ErrPastDepartureDate
	}
	if !c.CabinClass.Valid() {
		return ErrBadCabin
	}
	return nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrBadOrigin         ValidationError = "origin must be a 3-letter airport code"
	ErrBadDestination    ValidationError = "destination must be a 3-letter airport code"
	ErrBadDepartureDate  ValidationError = "departure_date must be YYYY-MM-DD"
	ErrPastDepartureDate ValidationError = "departure_date is in the past"
	ErrBadCabin          ValidationError = "unknown cabin class"
)
