package models

import (
	"fmt"
	"strings"
	"time"

	apperrors "matching-engine/internal/common/errors"
)

// StatusActive is the only listing status eligible for matching.
const StatusActive = "active"

// Listing is a read-only snapshot of one catalog property. The engine never
// mutates it.
type Listing struct {
	ID           string
	Address      string
	City         string
	State        string
	Zipcode      string
	Price        int64
	Beds         int
	Baths        int
	Area         float64
	PropertyType string
	YearBuilt    *int
	ListingDate  time.Time
	Status       string
}

// Validate checks a catalog row at the retrieval boundary. A violation yields
// a MALFORMED_LISTING error and the row is skipped.
func (l *Listing) Validate() error {
	var problems []string

	if l.ID == "" {
		problems = append(problems, "missing property id")
	}
	if l.Price < 0 {
		problems = append(problems, fmt.Sprintf("negative price %d", l.Price))
	}
	if l.Beds < 0 {
		problems = append(problems, fmt.Sprintf("negative beds %d", l.Beds))
	}
	if l.Baths < 0 {
		problems = append(problems, fmt.Sprintf("negative baths %d", l.Baths))
	}
	if l.Area <= 0 {
		problems = append(problems, fmt.Sprintf("non-positive area %g", l.Area))
	}

	if len(problems) > 0 {
		return apperrors.NewMalformedListingError(l.ID, strings.Join(problems, "; "))
	}
	return nil
}
