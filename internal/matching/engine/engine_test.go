package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/models"
)

// ==========================
// Fakes
// ==========================

type fakePreferenceSource struct {
	prefs []models.Preference
	err   error
}

func (f *fakePreferenceSource) LoadActive(ctx context.Context) ([]models.Preference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prefs, nil
}

type fakeCandidateSource struct {
	mu         sync.Mutex
	byPref     map[string][]models.Listing
	errForPref map[string]error
	calls      int
}

func (f *fakeCandidateSource) FindCandidates(ctx context.Context, pref *models.Preference) ([]models.Listing, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errForPref[pref.ID]; ok {
		return nil, err
	}
	return f.byPref[pref.ID], nil
}

type fakeLeadSink struct {
	mu            sync.Mutex
	leads         []models.Lead
	errForKey     map[string]error // keyed by property id
	failRemaining int              // fail this many emits, then recover
	failErr       error
}

func (f *fakeLeadSink) Emit(ctx context.Context, l *models.Lead) error {
	if err, ok := f.errForKey[l.PropertyID]; ok {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemaining > 0 {
		f.failRemaining--
		return f.failErr
	}
	f.leads = append(f.leads, *l)
	return nil
}

func (f *fakeLeadSink) emitted() []models.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Lead, len(f.leads))
	copy(out, f.leads)
	return out
}

type fakeDeduper struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (f *fakeDeduper) Seen(ctx context.Context, preferenceID, propertyID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[preferenceID+":"+propertyID], nil
}

func (f *fakeDeduper) Mark(ctx context.Context, preferenceID, propertyID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	f.keys[preferenceID+":"+propertyID] = true
	return nil
}

// ==========================
// Fixtures
// ==========================

func validPreference(id string) models.Preference {
	return models.Preference{
		ID:       id,
		UserID:   "user-" + id,
		MinPrice: 200000,
		MaxPrice: 300000,
		Beds:     3,
		Baths:    2,
		MinArea:  1500,
		Zipcodes: []string{"90210"},
		User: models.User{
			ID:        "user-" + id,
			Username:  "u-" + id,
			Email:     id + "@example.com",
			FirstName: "Jane",
			LastName:  "Doe",
		},
	}
}

// qualifyingListing scores 100 against validPreference: full price, bed,
// bath, area, and zipcode components.
func qualifyingListing(id string) models.Listing {
	return models.Listing{
		ID:      id,
		Address: "123 Main St",
		City:    "Beverly Hills",
		State:   "CA",
		Zipcode: "90210",
		Price:   250000,
		Beds:    3,
		Baths:   2,
		Area:    1600,
		Status:  models.StatusActive,
	}
}

// lowScoreListing scores 60 against validPreference: price outside the
// window, no location match, exact beds and baths, normal area.
func lowScoreListing(id string) models.Listing {
	return models.Listing{
		ID:      id,
		Address: "9 Far Rd",
		City:    "Elsewhere",
		State:   "ZZ",
		Zipcode: "00000",
		Price:   100000,
		Beds:    3,
		Baths:   2,
		Area:    1600,
		Status:  models.StatusActive,
	}
}

// boundaryListing scores exactly 70 against validPreference: price outside
// the window (0), one bed over (20), exact baths (20), oversized area (10),
// zipcode match (20). The boundary must not emit.
func boundaryListing(id string) models.Listing {
	return models.Listing{
		ID:      id,
		Address: "70 Edge Ln",
		City:    "Beverly Hills",
		State:   "CA",
		Zipcode: "90210",
		Price:   100000,
		Beds:    4,
		Baths:   2,
		Area:    1500 * 2,
		Status:  models.StatusActive,
	}
}

func newTestEngine(t *testing.T, prefs PreferenceSource, catalog CandidateSource, sink LeadSink, dedup Deduper, workers int) *Engine {
	t.Helper()
	return New(&Config{Workers: workers}, prefs, catalog, sink, dedup, logger.NewTestLogger(t))
}

// ==========================
// Tests
// ==========================

func TestRunCycle_EmitsOnlyQualifyingPairings(t *testing.T) {
	pref := validPreference("pref-1")
	prefs := &fakePreferenceSource{prefs: []models.Preference{pref}}
	catalog := &fakeCandidateSource{byPref: map[string][]models.Listing{
		"pref-1": {
			qualifyingListing("prop-hit"),
			lowScoreListing("prop-low"),
			boundaryListing("prop-boundary"),
		},
	}}
	sink := &fakeLeadSink{}

	e := newTestEngine(t, prefs, catalog, sink, nil, 1)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.PreferencesProcessed)
	assert.Equal(t, 3, report.CandidatesEvaluated)
	assert.Equal(t, 1, report.LeadsEmitted)

	emitted := sink.emitted()
	require.Len(t, emitted, 1)
	l := emitted[0]
	assert.Equal(t, "prop-hit", l.PropertyID)
	assert.Equal(t, "pref-1", l.PreferenceID)
	assert.Equal(t, pref.UserID, l.UserID)
	assert.Greater(t, l.Score, 70.0)
	assert.NotEmpty(t, l.ID)
}

func TestRunCycle_PreferenceSourceFailureIsFatal(t *testing.T) {
	prefs := &fakePreferenceSource{err: apperrors.NewSourceUnavailableError("preferences", assert.AnError)}
	catalog := &fakeCandidateSource{}
	sink := &fakeLeadSink{}

	e := newTestEngine(t, prefs, catalog, sink, nil, 1)
	_, err := e.RunCycle(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSourceUnavailable))
	assert.Zero(t, catalog.calls)
	assert.Empty(t, sink.emitted())
}

func TestRunCycle_MalformedPreferenceSkippedCycleContinues(t *testing.T) {
	bad := validPreference("pref-bad")
	bad.MinPrice = 300000
	bad.MaxPrice = 200000 // inverted bounds fail validation

	good := validPreference("pref-good")

	prefs := &fakePreferenceSource{prefs: []models.Preference{bad, good}}
	catalog := &fakeCandidateSource{byPref: map[string][]models.Listing{
		"pref-good": {qualifyingListing("prop-1")},
	}}
	sink := &fakeLeadSink{}

	e := newTestEngine(t, prefs, catalog, sink, nil, 1)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.PreferencesSkipped)
	assert.Equal(t, 1, report.PreferencesProcessed)
	assert.Equal(t, 1, report.LeadsEmitted)
	assert.Equal(t, 1, catalog.calls, "malformed preference must not reach the catalog")
}

func TestRunCycle_PerPreferenceQueryFailureDoesNotAbortCycle(t *testing.T) {
	failing := validPreference("pref-failing")
	good := validPreference("pref-good")

	prefs := &fakePreferenceSource{prefs: []models.Preference{failing, good}}
	catalog := &fakeCandidateSource{
		byPref: map[string][]models.Listing{
			"pref-good": {qualifyingListing("prop-1")},
		},
		errForPref: map[string]error{
			"pref-failing": apperrors.NewSourceUnavailableError("catalog", assert.AnError),
		},
	}
	sink := &fakeLeadSink{}

	e := newTestEngine(t, prefs, catalog, sink, nil, 1)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.PreferencesProcessed)
	assert.Equal(t, 1, report.PreferencesSkipped)
	assert.Equal(t, 1, report.LeadsEmitted)
}

func TestRunCycle_PublishFailureRecordedCycleContinues(t *testing.T) {
	pref := validPreference("pref-1")
	prefs := &fakePreferenceSource{prefs: []models.Preference{pref}}
	catalog := &fakeCandidateSource{byPref: map[string][]models.Listing{
		"pref-1": {qualifyingListing("prop-broken"), qualifyingListing("prop-ok")},
	}}
	sink := &fakeLeadSink{errForKey: map[string]error{
		"prop-broken": apperrors.NewPublishFailedError("lead-x", assert.AnError),
	}}

	e := newTestEngine(t, prefs, catalog, sink, nil, 1)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.PublishFailures)
	assert.Equal(t, 1, report.LeadsEmitted)

	emitted := sink.emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, "prop-ok", emitted[0].PropertyID)
}

func TestRunCycle_DedupSuppressesRepeatPairings(t *testing.T) {
	pref := validPreference("pref-1")
	prefs := &fakePreferenceSource{prefs: []models.Preference{pref}}
	catalog := &fakeCandidateSource{byPref: map[string][]models.Listing{
		"pref-1": {qualifyingListing("prop-1")},
	}}
	sink := &fakeLeadSink{}
	dedup := &fakeDeduper{}

	e := newTestEngine(t, prefs, catalog, sink, dedup, 1)

	first, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.LeadsEmitted)
	assert.Zero(t, first.LeadsSuppressed)

	second, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.LeadsEmitted)
	assert.Equal(t, 1, second.LeadsSuppressed)

	assert.Len(t, sink.emitted(), 1)
}

func TestRunCycle_FailedPublishRetriedOnNextCycle(t *testing.T) {
	pref := validPreference("pref-1")
	prefs := &fakePreferenceSource{prefs: []models.Preference{pref}}
	catalog := &fakeCandidateSource{byPref: map[string][]models.Listing{
		"pref-1": {qualifyingListing("prop-1")},
	}}
	sink := &fakeLeadSink{
		failRemaining: 1,
		failErr:       apperrors.NewPublishFailedError("lead-x", assert.AnError),
	}
	dedup := &fakeDeduper{}

	e := newTestEngine(t, prefs, catalog, sink, dedup, 1)

	// Broker is down for the first cycle: the publish fails and the pairing
	// must not enter the dedup window.
	first, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.PublishFailures)
	assert.Zero(t, first.LeadsEmitted)
	assert.Zero(t, first.LeadsSuppressed)

	// Broker recovered: the same pairing is retried and emitted.
	second, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.LeadsEmitted)
	assert.Zero(t, second.LeadsSuppressed)

	emitted := sink.emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, "prop-1", emitted[0].PropertyID)
}

func TestRunCycle_DedupFailureStillEmits(t *testing.T) {
	pref := validPreference("pref-1")
	prefs := &fakePreferenceSource{prefs: []models.Preference{pref}}
	catalog := &fakeCandidateSource{byPref: map[string][]models.Listing{
		"pref-1": {qualifyingListing("prop-1")},
	}}
	sink := &fakeLeadSink{}
	dedup := &fakeDeduper{err: fmt.Errorf("redis down")}

	e := newTestEngine(t, prefs, catalog, sink, dedup, 1)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.LeadsEmitted)
	assert.Zero(t, report.LeadsSuppressed)
}

func TestRunCycle_FansOutAcrossWorkerPool(t *testing.T) {
	var allPrefs []models.Preference
	byPref := make(map[string][]models.Listing)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("pref-%d", i)
		allPrefs = append(allPrefs, validPreference(id))
		byPref[id] = []models.Listing{qualifyingListing(fmt.Sprintf("prop-%d", i))}
	}

	prefs := &fakePreferenceSource{prefs: allPrefs}
	catalog := &fakeCandidateSource{byPref: byPref}
	sink := &fakeLeadSink{}

	e := newTestEngine(t, prefs, catalog, sink, nil, 4)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 20, report.PreferencesProcessed)
	assert.Equal(t, 20, report.LeadsEmitted)
	assert.Len(t, sink.emitted(), 20)
}

func TestRunCycle_EmptyPreferenceSet(t *testing.T) {
	prefs := &fakePreferenceSource{}
	catalog := &fakeCandidateSource{}
	sink := &fakeLeadSink{}

	e := newTestEngine(t, prefs, catalog, sink, nil, 4)
	report, err := e.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.PreferencesProcessed)
	assert.Zero(t, report.LeadsEmitted)
}
