// Package scoring implements the weighted match score between one preference
// and one candidate listing. Pure arithmetic, no I/O.
package scoring

import (
	"math"

	"matching-engine/internal/models"
)

// QualifyingThreshold is the score a pairing must exceed for a lead to be
// emitted. The boundary value itself does not qualify.
const QualifyingThreshold = 70.0

// Score returns the match score for a (preference, listing) pairing, clamped
// to [0, 100]. Deterministic and total: zero-width price ranges are guarded.
func Score(pref *models.Preference, listing *models.Listing) float64 {
	score := 0.0

	// Price (30 + up to 10 centering bonus). Listings outside the window
	// contribute nothing from this component.
	if listing.Price >= pref.MinPrice && listing.Price <= pref.MaxPrice {
		priceScore := 30.0
		priceRange := pref.MaxPrice - pref.MinPrice
		if priceRange > 0 {
			position := math.Abs(float64(listing.Price-pref.MinPrice)/float64(priceRange) - 0.5)
			priceScore += (0.5 - position) * 10
		}
		score += priceScore
	}

	// Beds (20 + 5 exact-match bonus)
	if listing.Beds >= pref.Beds {
		score += 20.0
		if listing.Beds == pref.Beds {
			score += 5.0
		}
	}

	// Baths (15 + 5 exact-match bonus)
	if listing.Baths >= pref.Baths {
		score += 15.0
		if listing.Baths == pref.Baths {
			score += 5.0
		}
	}

	// Area (15, with an oversize penalty stacked on top)
	if listing.Area >= pref.MinArea {
		score += 15.0
		if listing.Area > pref.MinArea*1.5 {
			score -= 5.0
		}
	}

	// Location (best tier wins: zipcode > city > state)
	if pref.HasZipcode(listing.Zipcode) {
		score += 20.0
	} else if pref.City != "" && listing.City == pref.City {
		score += 15.0
	} else if pref.State != "" && listing.State == pref.State {
		score += 10.0
	}

	return clamp(score)
}

// Qualifies reports whether score exceeds the qualifying threshold.
func Qualifies(score float64) bool {
	return score > QualifyingThreshold
}

func clamp(score float64) float64 {
	if score > 100.0 {
		return 100.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}
