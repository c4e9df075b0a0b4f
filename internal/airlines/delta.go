package airlines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dharmasatrya/awardsearch/internal/capture"
	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/reconcile"
	"github.com/dharmasatrya/awardsearch/internal/session"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
	"github.com/dharmasatrya/awardsearch/internal/timezone"
)

const (
	deltaTarget      = "delta"
	deltaShopURL     = "https://www.delta.com/shop/ow/search"
	deltaCredentials = 3
)

var deltaCabinCodes = map[models.Cabin]string{
	models.CabinEconomy:        "MAIN",
	models.CabinPremiumEconomy: "PE",
	models.CabinBusiness:       "D1S",
	models.CabinFirst:          "F",
}

type deltaShopResponse struct {
	Itineraries []deltaItinerary `json:"itineraries"`
}

type deltaItinerary struct {
	FareLabel string         `json:"brandName"`
	Miles     int            `json:"milesTotal"`
	Taxes     *deltaFee      `json:"totalTaxes"`
	CashTotal *deltaFee      `json:"totalPrice"`
	Duration  int            `json:"durationMinutes"`
	Segments  []deltaSegment `json:"segments"`
}

type deltaFee struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type deltaSegment struct {
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Departure    string `json:"departureTime"`
	Arrival      string `json:"arrivalTime"`
	Duration     int    `json:"durationMinutes"`
	Layover      *int   `json:"layoverMinutes"`
	Aircraft     string `json:"aircraftType"`
	FlightNumber string `json:"flightNumber"`
	Carrier      string `json:"marketingCarrier"`
}

// DeltaAPIStrategy replays captured session credentials against Delta's
// shop API, fetching the points-priced and cash-priced feeds concurrently
// and reconciling them by fingerprint. It is the cheap first rung of the
// Delta chain; the browser strategy below it mints the credentials this
// one consumes.
type DeltaAPIStrategy struct {
	client         *resty.Client
	captureTimeout time.Duration
	logger         *slog.Logger
}

func NewDeltaAPIStrategy(captureTimeout time.Duration, logger *slog.Logger) *DeltaAPIStrategy {
	if captureTimeout <= 0 {
		captureTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New()
	client.SetTimeout(captureTimeout)
	return &DeltaAPIStrategy{
		client:         client,
		captureTimeout: captureTimeout,
		logger:         logger,
	}
}

func (s *DeltaAPIStrategy) Name() string {
	return "delta_api"
}

func (s *DeltaAPIStrategy) Run(ctx context.Context, criteria models.SearchCriteria, deps strategy.Deps) ([]models.Offer, error) {
	creds, err := deps.Sessions.FetchActive(ctx, deltaTarget, deltaCredentials)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, cred := range creds {
		offers, err := s.runWithCredential(ctx, criteria, deps, cred)
		if err == nil {
			return offers, nil
		}
		if errors.Is(err, models.ErrNoAvailability) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("delta replay failed, retiring credential",
			"credential_id", cred.ID, "err", err)
		if derr := deps.Sessions.Deactivate(ctx, cred.ID); derr != nil {
			s.logger.Warn("failed to deactivate credential",
				"credential_id", cred.ID, "err", derr)
		}
	}

	return nil, fmt.Errorf("all delta credentials exhausted: %w", lastErr)
}

type deltaFeed struct {
	offers  []models.Offer
	cookies []*http.Cookie
	err     error
	cash    bool
}

// runWithCredential issues both priced feeds concurrently and merges what
// came back. One failed side is tolerated; the successful side's offers are
// still valid output.
func (s *DeltaAPIStrategy) runWithCredential(ctx context.Context, criteria models.SearchCriteria, deps strategy.Deps, cred session.Credential) ([]models.Offer, error) {
	resultCh := make(chan deltaFeed, 2)

	go func() {
		offers, cookies, err := s.fetchFeed(ctx, criteria, deps, cred, false)
		resultCh <- deltaFeed{offers: offers, cookies: cookies, err: err, cash: false}
	}()
	go func() {
		offers, cookies, err := s.fetchFeed(ctx, criteria, deps, cred, true)
		resultCh <- deltaFeed{offers: offers, cookies: cookies, err: err, cash: true}
	}()

	headers := cred.Headers
	var pointsOffers, cashOffers []models.Offer
	var pointsErr, cashErr error
	for i := 0; i < 2; i++ {
		feed := <-resultCh
		if feed.err == nil {
			headers = mergeCookies(headers, feed.cookies)
		}
		if feed.cash {
			cashOffers, cashErr = feed.offers, feed.err
		} else {
			pointsOffers, pointsErr = feed.offers, feed.err
		}
	}

	if pointsErr != nil && cashErr != nil {
		return nil, pointsErr
	}
	if pointsErr != nil {
		s.logger.Warn("delta points feed failed, returning cash side only", "err", pointsErr)
	}
	if cashErr != nil {
		s.logger.Warn("delta cash feed failed, returning points side only", "err", cashErr)
	}

	if len(pointsOffers) == 0 && len(cashOffers) == 0 {
		return nil, models.ErrNoAvailability
	}

	if err := deps.Sessions.Refresh(ctx, cred.ID, headers); err != nil {
		s.logger.Warn("failed to refresh credential", "credential_id", cred.ID, "err", err)
	}

	return reconcile.Merge(cashOffers, pointsOffers), nil
}

// fetchFeed posts one priced feed and reports its own response through the
// capture controller, then awaits it back. The direct-HTTP path satisfies
// the same capture contract as the browser recorder. Rotated cookies from
// the response are returned so the credential can be refreshed.
func (s *DeltaAPIStrategy) fetchFeed(ctx context.Context, criteria models.SearchCriteria, deps strategy.Deps, cred session.Credential, cash bool) ([]models.Offer, []*http.Cookie, error) {
	payload, err := s.buildPayload(criteria, cred, cash)
	if err != nil {
		return nil, nil, err
	}

	feedURL := deltaShopURL
	if cash {
		feedURL += "?priceType=cash"
	} else {
		feedURL += "?priceType=miles"
	}

	// Cookies are sent before the response is observed, so a successful
	// await guarantees the receive below will not block.
	cookieCh := make(chan []*http.Cookie, 1)

	go func() {
		req := s.client.R().SetContext(ctx).SetBody(payload)
		for _, h := range cred.Headers {
			req.SetHeader(h.Name, h.Value)
		}
		res, err := req.Post(feedURL)
		if err != nil {
			deps.Capture.ObserveFailure(capture.Response{
				URL:    feedURL,
				Method: http.MethodPost,
			})
			return
		}
		cookieCh <- res.Cookies()
		observed := capture.Response{
			URL:    feedURL,
			Method: http.MethodPost,
			Status: res.StatusCode(),
			Body:   res.Body(),
		}
		if res.StatusCode() >= 400 {
			deps.Capture.ObserveFailure(observed)
			return
		}
		deps.Capture.Observe(observed)
	}()

	body, err := deps.Capture.AwaitMatchingResponse(ctx,
		capture.MatchURL(feedURL, http.MethodPost), s.captureTimeout)
	if err != nil {
		return nil, nil, err
	}

	offers, err := parseDeltaShop(body, criteria, cash, s.logger)
	if err != nil {
		return nil, nil, err
	}

	// The send precedes Observe, so our own response's cookies are already
	// buffered here. A body served from an earlier retained response has no
	// cookies to offer; don't wait for any.
	var cookies []*http.Cookie
	select {
	case cookies = <-cookieCh:
	default:
	}
	return offers, cookies, nil
}

// mergeCookies folds rotated Set-Cookie values from a replay response into
// the credential's Cookie header, keeping pairs the response did not touch.
func mergeCookies(headers []session.Header, cookies []*http.Cookie) []session.Header {
	if len(cookies) == 0 {
		return headers
	}

	var pairs []string
	index := map[string]int{}
	record := func(name, pair string) {
		if i, ok := index[name]; ok {
			pairs[i] = pair
			return
		}
		index[name] = len(pairs)
		pairs = append(pairs, pair)
	}

	for _, h := range headers {
		if !strings.EqualFold(h.Name, "Cookie") {
			continue
		}
		for _, pair := range strings.Split(h.Value, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, _, _ := strings.Cut(pair, "=")
			record(name, pair)
		}
	}
	for _, c := range cookies {
		record(c.Name, c.Name+"="+c.Value)
	}

	jar := strings.Join(pairs, "; ")
	merged := make([]session.Header, 0, len(headers)+1)
	replaced := false
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Cookie") {
			if !replaced {
				merged = append(merged, session.Header{Name: h.Name, Value: jar})
				replaced = true
			}
			continue
		}
		merged = append(merged, h)
	}
	if !replaced {
		merged = append(merged, session.Header{Name: "Cookie", Value: jar})
	}
	return merged
}

// buildPayload fills the captured payload template with this search's
// fields. The template keeps whatever vendor-specific fields were captured
// at mint time; only the search parameters are overwritten.
func (s *DeltaAPIStrategy) buildPayload(criteria models.SearchCriteria, cred session.Credential, cash bool) (map[string]any, error) {
	payload := map[string]any{}
	if len(cred.Payload) > 0 {
		if err := json.Unmarshal(cred.Payload, &payload); err != nil {
			return nil, fmt.Errorf("credential payload malformed: %w", err)
		}
	}

	cabins := []models.Cabin{criteria.CabinClass}
	if criteria.CabinClass == models.CabinAll {
		cabins = models.ConcreteCabins
	}
	codes := make([]string, 0, len(cabins))
	for _, c := range cabins {
		codes = append(codes, deltaCabinCodes[c])
	}

	payload["origin"] = criteria.Origin
	payload["destination"] = criteria.Destination
	payload["departureDate"] = criteria.DepartureDate
	payload["passengers"] = criteria.Adults
	payload["cabins"] = codes
	if cash {
		payload["priceType"] = "cash"
	} else {
		payload["priceType"] = "miles"
	}
	return payload, nil
}

func parseDeltaShop(body []byte, criteria models.SearchCriteria, cash bool, logger *slog.Logger) ([]models.Offer, error) {
	var resp deltaShopResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("delta shop response malformed: %w", err)
	}

	offers := make([]models.Offer, 0, len(resp.Itineraries))
	for _, itin := range resp.Itineraries {
		offer, err := normalizeDeltaItinerary(itin, criteria, cash)
		if err != nil {
			logger.Debug("skipping unparseable delta itinerary", "err", err)
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func normalizeDeltaItinerary(itin deltaItinerary, criteria models.SearchCriteria, cash bool) (models.Offer, error) {
	if len(itin.Segments) == 0 {
		return models.Offer{}, fmt.Errorf("itinerary has no segments")
	}

	segments := make([]models.FlightSegment, len(itin.Segments))
	for i, seg := range itin.Segments {
		dep, err := time.Parse(time.RFC3339, seg.Departure)
		if err != nil {
			return models.Offer{}, err
		}
		arr, err := time.Parse(time.RFC3339, seg.Arrival)
		if err != nil {
			return models.Offer{}, err
		}
		segments[i] = models.FlightSegment{
			ID:                models.SegmentID(seg.FlightNumber, dep),
			Origin:            seg.Origin,
			Destination:       seg.Destination,
			Departure:         dep,
			DepartureTimezone: timezone.ByAirport(seg.Origin),
			Arrival:           arr,
			ArrivalTimezone:   timezone.ByAirport(seg.Destination),
			DurationMinutes:   seg.Duration,
			LayoverMinutes:    seg.Layover,
			Aircraft:          seg.Aircraft,
			FlightNumber:      seg.FlightNumber,
			CarrierCode:       seg.Carrier,
		}
	}

	offer := models.Offer{
		Airline:      "DL",
		Origin:       strings.ToUpper(itin.Segments[0].Origin),
		Destination:  strings.ToUpper(itin.Segments[len(itin.Segments)-1].Destination),
		CabinClass:   criteria.CabinClass,
		AirlineCabin: itin.FareLabel,
		Segments:     segments,
		Duration:     itin.Duration,
	}

	if cash {
		if itin.CashTotal != nil {
			amount := itin.CashTotal.Amount
			offer.CashFee = models.CashFee{Amount: &amount, Currency: itin.CashTotal.Currency}
		}
	} else {
		offer.Points = models.NormalizePoints(itin.Miles)
		if itin.Taxes != nil {
			amount := itin.Taxes.Amount
			offer.CashFee = models.CashFee{Amount: &amount, Currency: itin.Taxes.Currency}
		}
	}

	if !offer.Consistent() {
		return models.Offer{}, fmt.Errorf("segment endpoints do not match route")
	}
	return offer, nil
}
