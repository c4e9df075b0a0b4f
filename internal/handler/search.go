package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/awardsearch/internal/cache"
	"github.com/dharmasatrya/awardsearch/internal/engine"
	"github.com/dharmasatrya/awardsearch/internal/filter"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/pkg/currency"
)

// SearchRequest is the API request body: which airline to search plus the
// criteria and optional result shaping.
type SearchRequest struct {
	Airline       string          `json:"airline"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureDate string          `json:"departure_date"`
	CabinClass    models.Cabin    `json:"cabin_class"`
	Adults        int             `json:"adults"`
	Filters       *filter.Options `json:"filters,omitempty"`
}

type SearchHandler struct {
	engine *engine.Engine
	cache  cache.Cache
}

func NewSearchHandler(eng *engine.Engine, c cache.Cache) *SearchHandler {
	return &SearchHandler{
		engine: eng,
		cache:  c,
	}
}

func (h *SearchHandler) Search(c echo.Context) error {
	startTime := time.Now()
	ctx := c.Request().Context()

	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}
	if req.Airline == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "airline is required",
			Code:    http.StatusBadRequest,
		})
	}

	criteria := models.SearchCriteria{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		CabinClass:    req.CabinClass,
		Adults:        req.Adults,
	}
	criteria.Normalize()

	if cached, hit := h.cache.Get(ctx, req.Airline, criteria); hit {
		return h.respond(c, req.Airline, criteria, cached, req.Filters, startTime, true)
	}

	offers, err := h.engine.Search(ctx, req.Airline, criteria)
	if err != nil {
		status := http.StatusBadGateway
		if !errors.Is(err, models.ErrAllStrategiesFailed) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, models.ErrorResponse{
			Error:   "search_error",
			Message: "Failed to search award availability: " + err.Error(),
			Code:    status,
		})
	}

	_ = h.cache.Set(ctx, req.Airline, criteria, offers)
	return h.respond(c, req.Airline, criteria, offers, req.Filters, startTime, false)
}

func (h *SearchHandler) respond(c echo.Context, airline string, criteria models.SearchCriteria, offers []models.Offer, opts *filter.Options, startTime time.Time, cacheHit bool) error {
	filtered := filter.Apply(offers, opts)
	for i := range filtered {
		if filtered[i].CashFee.Amount != nil {
			filtered[i].CashFee.Formatted = currency.Format(
				*filtered[i].CashFee.Amount, filtered[i].CashFee.Currency)
		}
	}

	return c.JSON(http.StatusOK, models.SearchResponse{
		SearchCriteria: criteria,
		Metadata: models.SearchMetadata{
			TotalResults: len(filtered),
			Airline:      airline,
			SearchTimeMs: time.Since(startTime).Milliseconds(),
			CacheHit:     cacheHit,
		},
		Offers: filtered,
	})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
