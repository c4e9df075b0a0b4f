package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/awardsearch/internal/models"
)

func offer(fareLabel, flightNumber string) models.Offer {
	return models.Offer{
		Origin:       "JFK",
		Destination:  "LHR",
		AirlineCabin: fareLabel,
		Segments: []models.FlightSegment{{
			Origin:       "JFK",
			Destination:  "LHR",
			FlightNumber: flightNumber,
		}},
	}
}

func pointsOffer(fareLabel, flightNumber string, points int) models.Offer {
	o := offer(fareLabel, flightNumber)
	o.Points = &points
	return o
}

func cashOffer(fareLabel, flightNumber string, amount float64) models.Offer {
	o := offer(fareLabel, flightNumber)
	o.CashFee = models.CashFee{Amount: &amount, Currency: "USD"}
	return o
}

func TestMergeEmptySides(t *testing.T) {
	points := []models.Offer{pointsOffer("Saver", "VS4", 50000)}
	cash := []models.Offer{cashOffer("Saver", "VS4", 100)}

	require.Equal(t, points, Merge(nil, points))
	require.Equal(t, cash, Merge(cash, nil))
}

func TestMergeMatchingFingerprint(t *testing.T) {
	cash := []models.Offer{cashOffer("Saver", "VS4", 100)}
	points := []models.Offer{pointsOffer("Saver", "VS4", 50000)}

	merged := Merge(cash, points)
	require.Len(t, merged, 1)
	require.Equal(t, 50000, *merged[0].Points)
	require.Equal(t, 100.0, *merged[0].CashFee.Amount)
	require.Equal(t, "USD", merged[0].CashFee.Currency)
}

// Cross-feed provenance is fixed: points always come from the points feed,
// fees always from the cash feed, never swapped.
func TestMergeProvenance(t *testing.T) {
	stalePoints := 1
	cash := cashOffer("Saver", "VS4", 100)
	cash.Points = &stalePoints

	staleFee := 999.0
	points := pointsOffer("Saver", "VS4", 50000)
	points.CashFee = models.CashFee{Amount: &staleFee, Currency: "GBP"}

	merged := Merge([]models.Offer{cash}, []models.Offer{points})
	require.Len(t, merged, 1)
	require.Equal(t, 50000, *merged[0].Points)
	require.Equal(t, 100.0, *merged[0].CashFee.Amount)
}

func TestMergeUnmatchedKeptStandalone(t *testing.T) {
	cash := []models.Offer{
		cashOffer("Saver", "VS4", 100),
		cashOffer("Flex", "VS26", 240),
	}
	points := []models.Offer{
		pointsOffer("Saver", "VS4", 50000),
		pointsOffer("Saver", "VS10", 62500),
	}

	merged := Merge(cash, points)
	require.Len(t, merged, 3)

	// Points offers first, in input order, then unmatched cash.
	require.Equal(t, "saver_VS4", merged[0].Fingerprint())
	require.Equal(t, "saver_VS10", merged[1].Fingerprint())
	require.Equal(t, "flex_VS26", merged[2].Fingerprint())

	require.NotNil(t, merged[0].CashFee.Amount)
	require.Nil(t, merged[1].CashFee.Amount)
	require.Nil(t, merged[2].Points)
}

func TestMergeDisjointCommutesOnFingerprints(t *testing.T) {
	a := []models.Offer{cashOffer("Flex", "VS26", 240)}
	b := []models.Offer{pointsOffer("Saver", "VS4", 50000)}

	ab := Merge(a, b)
	ba := Merge(b, a)

	fingerprints := func(offers []models.Offer) map[string]bool {
		set := make(map[string]bool)
		for _, o := range offers {
			set[o.Fingerprint()] = true
		}
		return set
	}
	require.Equal(t, fingerprints(ab), fingerprints(ba))
}

// Duplicate fingerprints within one feed are last-write-wins: the later
// entry replaces the earlier one outright.
func TestMergeDuplicateWithinFeed(t *testing.T) {
	cash := []models.Offer{
		cashOffer("Saver", "VS4", 100),
		cashOffer("Saver", "VS4", 150),
	}
	points := []models.Offer{pointsOffer("Saver", "VS4", 50000)}

	merged := Merge(cash, points)
	require.Len(t, merged, 1)
	require.Equal(t, 150.0, *merged[0].CashFee.Amount)
}

func TestMergeDuplicatePointsCollapsed(t *testing.T) {
	points := []models.Offer{
		pointsOffer("Saver", "VS4", 50000),
		pointsOffer("Flex", "VS26", 80000),
		pointsOffer("Saver", "VS4", 47500),
	}
	cash := []models.Offer{cashOffer("Saver", "VS4", 100)}

	merged := Merge(cash, points)
	require.Len(t, merged, 2)

	// Later duplicate wins; first-seen position is kept.
	require.Equal(t, "saver_VS4", merged[0].Fingerprint())
	require.Equal(t, 47500, *merged[0].Points)
	require.Equal(t, 100.0, *merged[0].CashFee.Amount)
	require.Equal(t, "flex_VS26", merged[1].Fingerprint())
}

func TestMergeDuplicateUnmatchedCashCollapsed(t *testing.T) {
	cash := []models.Offer{
		cashOffer("Flex", "VS26", 240),
		cashOffer("Flex", "VS26", 260),
	}

	merged := Merge(cash, nil)
	require.Len(t, merged, 1)
	require.Equal(t, 260.0, *merged[0].CashFee.Amount)
}
