// Package preference loads active buyer preferences from the users store.
package preference

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	apperrors "matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/models"
)

// Loader runs the preference/user/zipcode join against the users database.
type Loader struct {
	db     *sql.DB
	logger logger.Logger
}

func NewLoader(db *sql.DB, log logger.Logger) *Loader {
	return &Loader{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "preference"}),
	}
}

const loadQuery = `SELECT p.id, p.min_price, p.max_price, p.beds, p.baths, p.min_area, p.type, p.city, p.state,
u.id AS user_id, u.username, u.email, u.first_name, u.last_name, u.phone,
array_agg(z.zipcode) AS zipcodes
FROM preference p
JOIN users u ON p.user_id = u.id
LEFT JOIN zipcode z ON z.preference_id = p.id
GROUP BY p.id, u.id`

// LoadActive returns every preference joined to its owning user, with zipcode
// rows grouped into one set per preference. A total failure here is fatal to
// the cycle.
func (l *Loader) LoadActive(ctx context.Context) ([]models.Preference, error) {
	rows, err := l.db.QueryContext(ctx, loadQuery)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError("preferences", err)
	}
	defer rows.Close()

	var prefs []models.Preference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, apperrors.NewSourceUnavailableError("preferences", err)
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSourceUnavailableError("preferences", err)
	}

	return prefs, nil
}

func scanPreference(rows *sql.Rows) (models.Preference, error) {
	var p models.Preference
	var prefType, city, state, phone sql.NullString
	var zipcodes []sql.NullString

	err := rows.Scan(
		&p.ID, &p.MinPrice, &p.MaxPrice, &p.Beds, &p.Baths, &p.MinArea,
		&prefType, &city, &state,
		&p.User.ID, &p.User.Username, &p.User.Email,
		&p.User.FirstName, &p.User.LastName, &phone,
		pq.Array(&zipcodes),
	)
	if err != nil {
		return models.Preference{}, fmt.Errorf("scan preference row: %w", err)
	}

	p.UserID = p.User.ID
	p.Type = prefType.String
	p.City = city.String
	p.State = state.String
	if phone.Valid {
		p.User.Phone = &phone.String
	}

	// array_agg over the LEFT JOIN yields {NULL} for a preference with zero
	// zipcode rows; that must collapse to an empty set, not a single null
	// entry.
	p.Zipcodes = make([]string, 0, len(zipcodes))
	for _, z := range zipcodes {
		if z.Valid && z.String != "" {
			p.Zipcodes = append(p.Zipcodes, z.String)
		}
	}

	return p, nil
}
