// Package reconcile merges the cash-priced and points-priced result sets
// of the same search into unified offers keyed by itinerary fingerprint. The feeds come from separate
// network calls that can return different subsets in different orders, so
// a match is established purely by itinerary content.
package reconcile

import "github.com/dharmasatrya/awardsearch/internal/models"

// Merge copies each cash offer's fee onto the points offer with the same
// fingerprint and keeps unmatched entries from either feed standalone.
// Output order: every points offer in first-seen order, then every
// unmatched cash offer in first-seen order.
//
// A fingerprint appearing twice within one feed resolves last-write-wins:
// the later entry replaces the earlier one and only one is emitted.
func Merge(cashOffers, pointsOffers []models.Offer) []models.Offer {
	byFingerprint := make(map[string]int, len(pointsOffers))
	merged := make([]models.Offer, 0, len(pointsOffers))
	for _, offer := range pointsOffers {
		fp := offer.Fingerprint()
		if i, ok := byFingerprint[fp]; ok {
			merged[i] = offer
			continue
		}
		byFingerprint[fp] = len(merged)
		merged = append(merged, offer)
	}

	var unmatched []models.Offer
	cashIndex := make(map[string]int)
	for _, cash := range cashOffers {
		fp := cash.Fingerprint()
		if i, ok := byFingerprint[fp]; ok {
			merged[i].CashFee = cash.CashFee
			continue
		}
		if i, ok := cashIndex[fp]; ok {
			unmatched[i] = cash
			continue
		}
		cashIndex[fp] = len(unmatched)
		unmatched = append(unmatched, cash)
	}

	return append(merged, unmatched...)
}
