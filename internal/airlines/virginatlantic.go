package airlines

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dharmasatrya/awardsearch/internal/models"
	"github.com/dharmasatrya/awardsearch/internal/reconcile"
	"github.com/dharmasatrya/awardsearch/internal/timezone"
)

const virginTarget = "virginatlantic"

var virginCabinCodes = map[models.Cabin]string{
	models.CabinEconomy:        "ECONOMY",
	models.CabinPremiumEconomy: "PREMIUM",
	models.CabinBusiness:       "UPPER",
}

// virginSearchResponse is the body of the flight-search XHR the results
// page fires. Points-priced and cash-priced itineraries arrive as two
// independent lists in one payload and are merged by fingerprint.
type virginSearchResponse struct {
	AwardTrips []virginTrip `json:"awardTrips"`
	CashTrips  []virginTrip `json:"cashTrips"`
}

type virginTrip struct {
	FareBrand string          `json:"fareBrand"`
	Miles     int             `json:"milesPrice"`
	Taxes     *virginMoney    `json:"taxesAndFees"`
	CashTotal *virginMoney    `json:"totalPrice"`
	Duration  int             `json:"totalDurationMinutes"`
	Segments  []virginSegment `json:"segments"`
}

type virginMoney struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currencyCode"`
}

type virginSegment struct {
	Origin       string `json:"originAirport"`
	Destination  string `json:"destinationAirport"`
	Departure    string `json:"departureDateTime"`
	Arrival      string `json:"arrivalDateTime"`
	Duration     int    `json:"durationMinutes"`
	Layover      *int   `json:"connectionMinutes"`
	Aircraft     string `json:"equipmentName"`
	FlightNumber string `json:"flightNumber"`
	Carrier      string `json:"operatingCarrier"`
}

// VirginSearchURL builds the results page URL the browser strategy
// navigates to.
func VirginSearchURL(criteria models.SearchCriteria) string {
	q := url.Values{}
	q.Set("origin", criteria.Origin)
	q.Set("destination", criteria.Destination)
	q.Set("departing", criteria.DepartureDate)
	q.Set("adults", strconv.Itoa(criteria.Adults))
	q.Set("awardSearch", "true")
	if code, ok := virginCabinCodes[criteria.CabinClass]; ok {
		q.Set("cabin", code)
	}
	return "https://www.virginatlantic.com/flight-search/results?" + q.Encode()
}

// ParseVirginSearch merges the award and cash lists of one captured search
// response into canonical offers.
func ParseVirginSearch(body []byte, criteria models.SearchCriteria) ([]models.Offer, error) {
	var resp virginSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("virgin search response malformed: %w", err)
	}

	pointsOffers := make([]models.Offer, 0, len(resp.AwardTrips))
	for _, trip := range resp.AwardTrips {
		offer, err := normalizeVirginTrip(trip, criteria, false)
		if err != nil {
			continue
		}
		pointsOffers = append(pointsOffers, offer)
	}

	cashOffers := make([]models.Offer, 0, len(resp.CashTrips))
	for _, trip := range resp.CashTrips {
		offer, err := normalizeVirginTrip(trip, criteria, true)
		if err != nil {
			continue
		}
		cashOffers = append(cashOffers, offer)
	}

	return reconcile.Merge(cashOffers, pointsOffers), nil
}

func normalizeVirginTrip(trip virginTrip, criteria models.SearchCriteria, cash bool) (models.Offer, error) {
	if len(trip.Segments) == 0 {
		return models.Offer{}, fmt.Errorf("trip has no segments")
	}

	segments := make([]models.FlightSegment, len(trip.Segments))
	for i, seg := range trip.Segments {
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
		Airline:      "VS",
		Origin:       strings.ToUpper(trip.Segments[0].Origin),
		Destination:  strings.ToUpper(trip.Segments[len(trip.Segments)-1].Destination),
		CabinClass:   criteria.CabinClass,
		AirlineCabin: trip.FareBrand,
		Segments:     segments,
		Duration:     trip.Duration,
	}

	if cash {
		if trip.CashTotal != nil {
			amount := trip.CashTotal.Amount
			offer.CashFee = models.CashFee{Amount: &amount, Currency: trip.CashTotal.Currency}
		}
	} else {
		offer.Points = models.NormalizePoints(trip.Miles)
		if trip.Taxes != nil {
			amount := trip.Taxes.Amount
			offer.CashFee = models.CashFee{Amount: &amount, Currency: trip.Taxes.Currency}
		}
	}

	if !offer.Consistent() {
		return models.Offer{}, fmt.Errorf("segment endpoints do not match route")
	}
	return offer, nil
}
