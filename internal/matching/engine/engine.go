// Package engine drives the matching cycle: load preferences, retrieve and
// score candidates, emit qualifying leads, report the aggregate outcome.
package engine

import (
	"context"
	"sync"
	"time"

	apperrors "matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/common/metrics"
	"matching-engine/internal/matching/scoring"
	"matching-engine/internal/models"
)

// PreferenceSource yields the full set of active preferences.
type PreferenceSource interface {
	LoadActive(ctx context.Context) ([]models.Preference, error)
}

// CandidateSource yields the listings satisfying a preference's hard filters.
type CandidateSource interface {
	FindCandidates(ctx context.Context, pref *models.Preference) ([]models.Listing, error)
}

// LeadSink accepts a qualifying lead for publishing.
type LeadSink interface {
	Emit(ctx context.Context, l *models.Lead) error
}

// Deduper suppresses repeat emissions for an unchanged pairing. May be nil.
// A pairing is marked only after its lead is published, so a failed publish
// stays eligible for the next cycle.
type Deduper interface {
	Seen(ctx context.Context, preferenceID, propertyID string) (bool, error)
	Mark(ctx context.Context, preferenceID, propertyID string) error
}

type Config struct {
	// Workers bounds the per-cycle preference pool so the catalog store is
	// not overwhelmed.
	Workers int
}

// Report is the aggregate outcome of one cycle.
type Report struct {
	PreferencesProcessed int
	PreferencesSkipped   int
	CandidatesEvaluated  int
	LeadsEmitted         int
	LeadsSuppressed      int
	PublishFailures      int
	Duration             time.Duration
}

// Engine orchestrates one matching cycle at a time. It holds no state across
// cycles.
type Engine struct {
	config      *Config
	preferences PreferenceSource
	catalog     CandidateSource
	sink        LeadSink
	dedup       Deduper
	logger      logger.Logger
}

func New(config *Config, prefs PreferenceSource, catalog CandidateSource, sink LeadSink, dedup Deduper, log logger.Logger) *Engine {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		config:      &Config{Workers: workers},
		preferences: prefs,
		catalog:     catalog,
		sink:        sink,
		dedup:       dedup,
		logger:      log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

// RunCycle executes one full pass over all preferences. A preference-source
// failure aborts the cycle; every other failure is scoped to its preference,
// listing, or publish and the cycle continues.
func (e *Engine) RunCycle(ctx context.Context) (Report, error) {
	start := time.Now()
	e.logger.Info("matching cycle started", nil)

	prefs, err := e.preferences.LoadActive(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return Report{Duration: time.Since(start)}, err
	}

	e.logger.Info("preferences loaded", map[string]interface{}{
		"count": len(prefs),
	})

	var (
		mu     sync.Mutex
		report Report
		wg     sync.WaitGroup
	)
	sem := make(chan struct{}, e.config.Workers)

	for i := range prefs {
		pref := &prefs[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.processPreference(ctx, pref, &mu, &report)
		}()
	}
	wg.Wait()

	report.Duration = time.Since(start)
	metrics.CyclesTotal.WithLabelValues("completed").Inc()
	metrics.CycleDuration.Observe(report.Duration.Seconds())

	e.logger.Info("matching cycle completed", map[string]interface{}{
		"preferencesProcessed": report.PreferencesProcessed,
		"preferencesSkipped":   report.PreferencesSkipped,
		"candidatesEvaluated":  report.CandidatesEvaluated,
		"leadsEmitted":         report.LeadsEmitted,
		"leadsSuppressed":      report.LeadsSuppressed,
		"publishFailures":      report.PublishFailures,
		"duration":             report.Duration.String(),
	})
	return report, nil
}

func (e *Engine) processPreference(ctx context.Context, pref *models.Preference, mu *sync.Mutex, report *Report) {
	if err := pref.Validate(); err != nil {
		e.logger.WithError(err).Warn("skipping malformed preference", map[string]interface{}{
			"preferenceId": pref.ID,
		})
		metrics.PreferencesSkipped.Inc()
		mu.Lock()
		report.PreferencesSkipped++
		mu.Unlock()
		return
	}

	candidates, err := e.catalog.FindCandidates(ctx, pref)
	if err != nil {
		// A query failure for one preference does not abort the cycle.
		e.logger.WithError(err).Error("candidate retrieval failed", map[string]interface{}{
			"preferenceId": pref.ID,
		})
		metrics.PreferencesSkipped.Inc()
		mu.Lock()
		report.PreferencesSkipped++
		mu.Unlock()
		return
	}

	e.logger.Debug("candidates retrieved", map[string]interface{}{
		"preferenceId": pref.ID,
		"count":        len(candidates),
	})

	emitted, suppressed, failed := 0, 0, 0
	for i := range candidates {
		listing := &candidates[i]
		score := scoring.Score(pref, listing)
		metrics.CandidatesEvaluated.Inc()

		if !scoring.Qualifies(score) {
			continue
		}

		if e.seen(ctx, pref.ID, listing.ID) {
			suppressed++
			metrics.LeadsSuppressed.Inc()
			continue
		}

		l := models.NewLead(*pref, *listing, score)
		if err := e.sink.Emit(ctx, &l); err != nil {
			e.logger.WithError(err).Error("lead emission failed", map[string]interface{}{
				"leadId":       l.ID,
				"preferenceId": pref.ID,
				"propertyId":   listing.ID,
			})
			failed++
			metrics.PublishFailures.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
			continue
		}
		emitted++
		metrics.LeadsEmitted.Inc()
		e.mark(ctx, pref.ID, listing.ID)
	}

	metrics.PreferencesProcessed.Inc()
	mu.Lock()
	report.PreferencesProcessed++
	report.CandidatesEvaluated += len(candidates)
	report.LeadsEmitted += emitted
	report.LeadsSuppressed += suppressed
	report.PublishFailures += failed
	mu.Unlock()
}

// seen consults the dedup window. A dedup failure counts as unseen: lead flow
// wins over duplicate suppression.
func (e *Engine) seen(ctx context.Context, preferenceID, propertyID string) bool {
	if e.dedup == nil {
		return false
	}
	seen, err := e.dedup.Seen(ctx, preferenceID, propertyID)
	if err != nil {
		e.logger.WithError(err).Warn("dedup window unavailable, emitting anyway", map[string]interface{}{
			"preferenceId": preferenceID,
			"propertyId":   propertyID,
		})
		return false
	}
	return seen
}

// mark records a published pairing in the dedup window. A mark failure is
// logged only; at worst the lead is re-emitted on a later cycle.
func (e *Engine) mark(ctx context.Context, preferenceID, propertyID string) {
	if e.dedup == nil {
		return
	}
	if err := e.dedup.Mark(ctx, preferenceID, propertyID); err != nil {
		e.logger.WithError(err).Warn("dedup mark failed", map[string]interface{}{
			"preferenceId": preferenceID,
			"propertyId":   propertyID,
		})
	}
}
