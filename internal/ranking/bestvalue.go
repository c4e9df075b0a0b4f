package ranking

import (
	"math"

	"github.com/dharmasatrya/awardsearch/internal/models"
)

const (
	PointsWeight = 0.5
	FeeWeight    = 0.3
	StopsWeight  = 0.2
)

// CalculateScores assigns every offer a value score relative to the batch.
// Offers without a points price (cash-only or sold out) take the worst
// points score so bookable awards sort ahead of them.
func CalculateScores(offers []models.Offer) []models.Offer {
	if len(offers) == 0 {
		return offers
	}

	maxPoints := findMaxPoints(offers)
	maxFee := findMaxFee(offers)

	result := make([]models.Offer, len(offers))
	for i, o := range offers {
		result[i] = o
		result[i].ValueScore = CalculateBestValue(o, maxPoints, maxFee)
	}

	return result
}

// Lower score = better value
func CalculateBestValue(offer models.Offer, maxPoints, maxFee float64) float64 {
	pointsScore := 100.0
	if offer.Points != nil && maxPoints > 0 {
		pointsScore = (float64(*offer.Points) / maxPoints) * 100
	}

	feeScore := 0.0
	if offer.CashFee.Amount != nil && maxFee > 0 {
		feeScore = (*offer.CashFee.Amount / maxFee) * 100
	}

	stopsScore := float64(offer.Stops()) * 15
	score := (pointsScore * PointsWeight) + (feeScore * FeeWeight) + (stopsScore * StopsWeight)

	return math.Round(score*100) / 100
}

func findMaxPoints(offers []models.Offer) float64 {
	maxPoints := 0.0
	for _, o := range offers {
		if o.Points != nil && float64(*o.Points) > maxPoints {
			maxPoints = float64(*o.Points)
		}
	}
	return maxPoints
}

func findMaxFee(offers []models.Offer) float64 {
	maxFee := 0.0
	for _, o := range offers {
		if o.CashFee.Amount != nil && *o.CashFee.Amount > maxFee {
			maxFee = *o.CashFee.Amount
		}
	}
	return maxFee
}
