package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type Cabin string

const (
	CabinEconomy        Cabin = "economy"
	CabinPremiumEconomy Cabin = "premium_economy"
	CabinBusiness       Cabin = "business"
	CabinFirst          Cabin = "first"
	CabinAll            Cabin = "all"
)

// ConcreteCabins is the expansion of CabinAll. Strategies that need to
// query one cabin at a time iterate over this set.
var ConcreteCabins = []Cabin{CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst}

func (c Cabin) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst, CabinAll:
		return true
	}
	return false
}

type FlightSegment struct {
	ID                string     `json:"id"`
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	Departure         time.Time  `json:"departure"`
	DepartureTimezone string     `json:"departure_timezone"`
	Arrival           time.Time  `json:"arrival"`
	ArrivalTimezone   string     `json:"arrival_timezone"`
	DurationMinutes   int        `json:"duration_minutes"`
	LayoverMinutes    *int       `json:"layover_minutes,omitempty"`
	Aircraft          string     `json:"aircraft,omitempty"`
	FlightNumber      string     `json:"flight_number"`
	CarrierCode       string     `json:"carrier_code"`
}

// SegmentID derives the opaque identifier used to correlate fare-code
// lookups within one strategy run. It is not stable across runs and must
// never be used for equality between offers.
func SegmentID(flightNumber string, departure time.Time) string {
	sum := sha256.Sum256([]byte(flightNumber + departure.Format(time.RFC3339)))
	return hex.EncodeToString(sum[:8])
}

type CashFee struct {
	// Amount is nil when the fee is unknown.
	Amount    *float64 `json:"amount"`
	Currency  string   `json:"currency,omitempty"`
	Formatted string   `json:"formatted,omitempty"`
}

// Offer is the normalized, airline-agnostic representation of one bookable
// fare on one itinerary.
type Offer struct {
	Airline      string          `json:"airline"`
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	CabinClass   Cabin           `json:"cabin_class"`
	AirlineCabin string          `json:"airline_cabin"`
	// Points is nil when the fare is sold out or not bookable with points.
	// A -1 from an upstream feed means the same thing and is normalized to nil.
	Points   *int            `json:"points"`
	CashFee  CashFee         `json:"cash_fee"`
	Segments []FlightSegment `json:"segments"`
	Duration int             `json:"duration_minutes"`

	// ValueScore is filled by the ranking package when value sorting is
	// requested. Lower is better.
	ValueScore float64 `json:"value_score,omitempty"`
}

// Stops is the number of intermediate stops on the itinerary.
func (o Offer) Stops() int {
	if len(o.Segments) == 0 {
		return 0
	}
	return len(o.Segments) - 1
}

// Fingerprint correlates the same itinerary across two independently fetched
// feeds. It is recomputed on demand and never persisted.
func (o Offer) Fingerprint() string {
	parts := make([]string, 0, len(o.Segments)+1)
	parts = append(parts, strings.ToLower(o.AirlineCabin))
	for _, s := range o.Segments {
		parts = append(parts, s.FlightNumber)
	}
	return strings.Join(parts, "_")
}

// Consistent reports whether the offer satisfies the segment invariant:
// a non-empty segment list whose endpoints match the offer's route.
func (o Offer) Consistent() bool {
	if len(o.Segments) == 0 {
		return false
	}
	return o.Origin == o.Segments[0].Origin &&
		o.Destination == o.Segments[len(o.Segments)-1].Destination
}

// NormalizePoints maps the upstream "-1 means sold out" convention to nil.
func NormalizePoints(points int) *int {
	if points < 0 {
		return nil
	}
	return &points
}
