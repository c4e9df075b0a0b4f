package airlines

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/awardsearch/internal/models"
)

const virginBody = `{
	"awardTrips": [
		{
			"fareBrand": "Saver",
			"milesPrice": 50000,
			"taxesAndFees": {"amount": 321.40, "currencyCode": "USD"},
			"totalDurationMinutes": 415,
			"segments": [
				{
					"originAirport": "JFK",
					"destinationAirport": "LHR",
					"departureDateTime": "2026-09-02T18:30:00Z",
					"arrivalDateTime": "2026-09-03T06:25:00Z",
					"durationMinutes": 415,
					"equipmentName": "A350-1000",
					"flightNumber": "VS4",
					"operatingCarrier": "VS"
				}
			]
		},
		{
			"fareBrand": "Saver",
			"milesPrice": -1,
			"totalDurationMinutes": 430,
			"segments": [
				{
					"originAirport": "JFK",
					"destinationAirport": "LHR",
					"departureDateTime": "2026-09-02T21:00:00Z",
					"arrivalDateTime": "2026-09-03T09:10:00Z",
					"durationMinutes": 430,
					"flightNumber": "VS10",
					"operatingCarrier": "VS"
				}
			]
		}
	],
	"cashTrips": [
		{
			"fareBrand": "Saver",
			"totalPrice": {"amount": 842.00, "currencyCode": "USD"},
			"totalDurationMinutes": 415,
			"segments": [
				{
					"originAirport": "JFK",
					"destinationAirport": "LHR",
					"departureDateTime": "2026-09-02T18:30:00Z",
					"arrivalDateTime": "2026-09-03T06:25:00Z",
					"durationMinutes": 415,
					"flightNumber": "VS4",
					"operatingCarrier": "VS"
				}
			]
		}
	]
}`

func virginCriteria() models.SearchCriteria {
	return models.SearchCriteria{
		Origin:        "JFK",
		Destination:   "LHR",
		DepartureDate: "2026-09-02",
		CabinClass:    models.CabinEconomy,
		Adults:        1,
	}
}

func TestParseVirginSearchMergesFeeds(t *testing.T) {
	offers, err := ParseVirginSearch([]byte(virginBody), virginCriteria())
	require.NoError(t, err)
	require.Len(t, offers, 2)

	// VS4 appears in both feeds: points from the award side, the full cash
	// price from the cash side.
	vs4 := offers[0]
	require.Equal(t, "saver_VS4", vs4.Fingerprint())
	require.Equal(t, 50000, *vs4.Points)
	require.Equal(t, 842.00, *vs4.CashFee.Amount)
	require.Equal(t, "USD", vs4.CashFee.Currency)
	require.Equal(t, "VS", vs4.Airline)
	require.Equal(t, "America/New_York", vs4.Segments[0].DepartureTimezone)
	require.Equal(t, "Europe/London", vs4.Segments[0].ArrivalTimezone)

	// VS10 is award-only with -1 miles: sold out, points normalized to nil.
	vs10 := offers[1]
	require.Equal(t, "saver_VS10", vs10.Fingerprint())
	require.Nil(t, vs10.Points)
}

func TestParseVirginSearchMalformed(t *testing.T) {
	_, err := ParseVirginSearch([]byte("<html>blocked</html>"), virginCriteria())
	require.Error(t, err)
}

func TestVirginSearchURL(t *testing.T) {
	criteria := virginCriteria()
	criteria.CabinClass = models.CabinBusiness

	u := VirginSearchURL(criteria)
	require.Contains(t, u, "origin=JFK")
	require.Contains(t, u, "destination=LHR")
	require.Contains(t, u, "departing=2026-09-02")
	require.Contains(t, u, "cabin=UPPER")
	require.Contains(t, u, "awardSearch=true")
}
