package models

import (
	"fmt"
	"strings"

	apperrors "matching-engine/internal/common/errors"
)

// Preference is a user's declared property search criteria. It is immutable
// for the duration of one matching cycle.
type Preference struct {
	ID       string
	UserID   string
	MinPrice int64
	MaxPrice int64
	Beds     int
	Baths    int
	MinArea  float64

	// Optional filters; empty string means unset.
	Type  string
	City  string
	State string

	// Zipcodes is the set of acceptable zipcodes. Empty means no zipcode
	// restriction.
	Zipcodes []string

	User User
}

// HasZipcode reports whether zipcode is in the preference's zipcode set.
func (p *Preference) HasZipcode(zipcode string) bool {
	for _, z := range p.Zipcodes {
		if z == zipcode {
			return true
		}
	}
	return false
}

// Validate checks the numeric bounds of the preference. A violation yields a
// MALFORMED_PREFERENCE error and the preference is skipped for the cycle.
func (p *Preference) Validate() error {
	var problems []string

	if p.UserID == "" {
		problems = append(problems, "missing user id")
	}
	if p.MinPrice < 0 {
		problems = append(problems, fmt.Sprintf("negative min_price %d", p.MinPrice))
	}
	if p.MaxPrice < p.MinPrice {
		problems = append(problems, fmt.Sprintf("max_price %d below min_price %d", p.MaxPrice, p.MinPrice))
	}
	if p.Beds < 0 {
		problems = append(problems, fmt.Sprintf("negative beds %d", p.Beds))
	}
	if p.Baths < 0 {
		problems = append(problems, fmt.Sprintf("negative baths %d", p.Baths))
	}
	if p.MinArea <= 0 {
		problems = append(problems, fmt.Sprintf("non-positive min_area %g", p.MinArea))
	}

	if len(problems) > 0 {
		return apperrors.NewMalformedPreferenceError(p.ID, strings.Join(problems, "; "))
	}
	return nil
}
