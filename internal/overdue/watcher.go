// Package overdue reports submissions whose review window closed before the
// panel finished.
package overdue

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/contest-engine/internal/metrics"
	"github.com/terra-clan/contest-engine/internal/models"
)

// DefaultInterval is used when the configured interval is not positive
const DefaultInterval = 15 * time.Minute

// Lister is the subset of the store the watcher reads
type Lister interface {
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error)
}

// Watcher periodically scans for overdue reviews
type Watcher struct {
	store    Lister
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewWatcher creates a new overdue watcher. m may be nil.
func NewWatcher(store Lister, interval time.Duration, m *metrics.Metrics) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Watcher{
		store:    store,
		interval: interval,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the watcher in a goroutine
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	slog.Info("overdue watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run immediately on start
	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("overdue watcher stopped")
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check runs one scan and returns the overdue submissions
func (w *Watcher) Check(ctx context.Context) []*models.Submission {
	open, err := w.store.ListSubmissions(ctx, models.SubmissionFilter{Status: models.StatusUnderReview})
	if err != nil {
		slog.Error("failed to list submissions under review", "error", err)
		return nil
	}

	now := w.now()
	var overdue []*models.Submission
	for _, sub := range open {
		if !sub.IsOverdue(now) {
			continue
		}
		overdue = append(overdue, sub)
		slog.Warn("review overdue",
			"submission_id", sub.ID,
			"team_id", sub.TeamID,
			"deadline", sub.Deadline,
			"evaluators", sub.AssignedEvaluators,
		)
	}

	w.metrics.SetOverdue(len(overdue))
	if len(overdue) == 0 {
		slog.Debug("no overdue reviews")
	}
	return overdue
}
