// Package catalog retrieves candidate listings for a preference from the
// property catalog store.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	apperrors "matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
	"matching-engine/internal/models"
)

// Retriever runs read-only candidate queries against the catalog database.
type Retriever struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRetriever(db *sql.DB, log logger.Logger) *Retriever {
	return &Retriever{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

const baseQuery = `SELECT id, address, city, state, zipcode, price, beds, baths, area, property_type, year_built, listing_date, status
FROM properties
WHERE status = 'active'
AND price BETWEEN $1 AND $2
AND beds >= $3
AND baths >= $4
AND area >= $5`

// FindCandidates returns the active listings satisfying every hard filter of
// the preference plus any optional filters it specifies. An empty result is
// not an error.
func (r *Retriever) FindCandidates(ctx context.Context, pref *models.Preference) ([]models.Listing, error) {
	query, args := buildQuery(pref)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("catalog", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewSourceUnavailableError("catalog", err)
		}

		// Malformed rows are skipped at the boundary, never propagated into
		// scoring.
		if err := listing.Validate(); err != nil {
			r.logger.WithError(err).Warn("skipping malformed listing", map[string]interface{}{
				"propertyId": listing.ID,
			})
			metrics.ListingsSkipped.Inc()
			continue
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSourceUnavailableError("catalog", err)
	}

	return listings, nil
}

// buildQuery composes the conjunctive filter predicate. Optional filters are
// appended only when the preference specifies them.
func buildQuery(pref *models.Preference) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(baseQuery)

	args := []interface{}{pref.MinPrice, pref.MaxPrice, pref.Beds, pref.Baths, pref.MinArea}

	if pref.Type != "" {
		args = append(args, pref.Type)
		fmt.Fprintf(&sb, "\nAND property_type = $%d", len(args))
	}
	if pref.City != "" {
		args = append(args, pref.City)
		fmt.Fprintf(&sb, "\nAND city = $%d", len(args))
	}
	if pref.State != "" {
		args = append(args, pref.State)
		fmt.Fprintf(&sb, "\nAND state = $%d", len(args))
	}
	if len(pref.Zipcodes) > 0 {
		args = append(args, pq.Array(pref.Zipcodes))
		fmt.Fprintf(&sb, "\nAND zipcode = ANY($%d)", len(args))
	}

	return sb.String(), args
}

func scanListing(rows *sql.Rows) (models.Listing, error) {
	var l models.Listing
	var yearBuilt sql.NullInt64

	err := rows.Scan(
		&l.ID, &l.Address, &l.City, &l.State, &l.Zipcode,
		&l.Price, &l.Beds, &l.Baths, &l.Area,
		&l.PropertyType, &yearBuilt, &l.ListingDate, &l.Status,
	)
	if err != nil {
		return models.Listing{}, fmt.Errorf("scan listing row: %w", err)
	}

	if yearBuilt.Valid {
		yb := int(yearBuilt.Int64)
		l.YearBuilt = &yb
	}
	return l, nil
}
