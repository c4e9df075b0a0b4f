package strategy

import (
	"context"

	"github.com/dharmasatrya/awardsearch/internal/capture"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/session"
)

// Deps are the collaborators handed to every strategy run. The engine owns
// their lifecycle; strategies only borrow them.
type Deps struct {
	Sessions *session.Store
	Capture  *capture.Controller
}

// Strategy is one independent scraping implementation for one airline.
// Run must return models.ErrNoAvailability for a confirmed empty result and
// any other error for a failure; the two drive completely different engine
// behavior. Run must not leak browser or profile resources on any exit path.
type Strategy interface {
	Name() string
	Run(ctx context.Context, criteria models.SearchCriteria, deps Deps) ([]models.Offer, error)
}

// Error wraps a strategy failure with the strategy that raised it.
type Error struct {
	Strategy string
	Err      error
}

func (e *Error) Error() string {
	return e.Strategy + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(strategy string, err error) *Error {
	return &Error{
		Strategy: strategy,
		Err:      err,
	}
}
