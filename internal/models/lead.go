package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead is the emitted artifact for one qualifying preference-listing pairing.
// It is constructed exactly once per pairing per cycle and never updated;
// ownership transfers to the publisher on emit.
type Lead struct {
	ID           string
	UserID       string
	PropertyID   string
	PreferenceID string
	Score        float64
	CreatedAt    time.Time

	User       User
	Listing    Listing
	Preference Preference
}

// NewLead builds the denormalized lead record for a scored pairing.
func NewLead(pref Preference, listing Listing, score float64) Lead {
	return Lead{
		ID:           uuid.New().String(),
		UserID:       pref.UserID,
		PropertyID:   listing.ID,
		PreferenceID: pref.ID,
		Score:        score,
		CreatedAt:    time.Now().UTC(),
		User:         pref.User,
		Listing:      listing,
		Preference:   pref,
	}
}

// LeadMessage is the wire form published to the leads topic. Downstream
// consumers need no further lookups: user, property, and preference details
// are carried denormalized.
type LeadMessage struct {
	LeadID            string            `json:"lead_id"`
	UserID            string            `json:"user_id"`
	PropertyID        string            `json:"property_id"`
	PreferenceID      string            `json:"preference_id"`
	MatchScore        float64           `json:"match_score"`
	UserDetails       UserDetails       `json:"user_details"`
	PropertyDetails   PropertyDetails   `json:"property_details"`
	PreferenceDetails PreferenceDetails `json:"preference_details"`
	CreatedAt         string            `json:"created_at"`
}

type UserDetails struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
}

type PropertyDetails struct {
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zipcode      string  `json:"zipcode"`
	Price        int64   `json:"price"`
	Beds         int     `json:"beds"`
	Baths        int     `json:"baths"`
	Area         float64 `json:"area"`
	PropertyType string  `json:"property_type"`
	YearBuilt    *int    `json:"year_built"`
	ListingDate  string  `json:"listing_date"`
	Status       string  `json:"status"`
}

type PreferenceDetails struct {
	MinPrice int64    `json:"min_price"`
	MaxPrice int64    `json:"max_price"`
	Beds     int      `json:"beds"`
	Baths    int      `json:"baths"`
	MinArea  float64  `json:"min_area"`
	Type     string   `json:"type,omitempty"`
	City     string   `json:"city,omitempty"`
	State    string   `json:"state,omitempty"`
	Zipcodes []string `json:"zipcodes"`
}

// Message converts the lead to its wire form. Timestamps are RFC 3339 strings.
func (l *Lead) Message() LeadMessage {
	zipcodes := l.Preference.Zipcodes
	if zipcodes == nil {
		zipcodes = []string{}
	}

	return LeadMessage{
		LeadID:       l.ID,
		UserID:       l.UserID,
		PropertyID:   l.PropertyID,
		PreferenceID: l.PreferenceID,
		MatchScore:   l.Score,
		UserDetails: UserDetails{
			Username:  l.User.Username,
			Email:     l.User.Email,
			FirstName: l.User.FirstName,
			LastName:  l.User.LastName,
			Phone:     l.User.Phone,
		},
		PropertyDetails: PropertyDetails{
			Address:      l.Listing.Address,
			City:         l.Listing.City,
			State:        l.Listing.State,
			Zipcode:      l.Listing.Zipcode,
			Price:        l.Listing.Price,
			Beds:         l.Listing.Beds,
			Baths:        l.Listing.Baths,
			Area:         l.Listing.Area,
			PropertyType: l.Listing.PropertyType,
			YearBuilt:    l.Listing.YearBuilt,
			ListingDate:  l.Listing.ListingDate.UTC().Format(time.RFC3339),
			Status:       l.Listing.Status,
		},
		PreferenceDetails: PreferenceDetails{
			MinPrice: l.Preference.MinPrice,
			MaxPrice: l.Preference.MaxPrice,
			Beds:     l.Preference.Beds,
			Baths:    l.Preference.Baths,
			MinArea:  l.Preference.MinArea,
			Type:     l.Preference.Type,
			City:     l.Preference.City,
			State:    l.Preference.State,
			Zipcodes: zipcodes,
		},
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
	}
}
