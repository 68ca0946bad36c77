package lookup

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Refresher reloads registered file maps on a cron schedule. It covers
// deployments where fsnotify events are unreliable (network mounts,
// containers with volume drivers) and mirrors timed map polling.
type Refresher struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	files   []*File
	running bool
}

// NewRefresher creates an idle refresher.
func NewRefresher(logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cron:   cron.New(),
		logger: logger.With("component", "lookup.refresher"),
	}
}

// Add registers a file map for periodic reload.
func (r *Refresher) Add(f *File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, f)
}

// Start schedules refreshes on the given standard cron expression
// (e.g. "*/5 * * * *" for every five minutes).
func (r *Refresher) Start(schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("refresher already running")
	}

	if _, err := r.cron.AddFunc(schedule, r.refreshAll); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("map refresher started", "schedule", schedule)
	return nil
}

// refreshAll reloads every registered map, continuing past individual
// failures.
func (r *Refresher) refreshAll() {
	r.mu.Lock()
	files := make([]*File, len(r.files))
	copy(files, r.files)
	r.mu.Unlock()

	for _, f := range files {
		if err := f.Reload(); err != nil {
			r.logger.Error("scheduled map reload failed",
				"path", f.Path(),
				"error", err,
			)
			continue
		}
		r.logger.Debug("map refreshed",
			"path", f.Path(),
			"entries", f.Len(),
		)
	}
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		ctx := r.cron.Stop()
		<-ctx.Done()
		r.running = false
		r.logger.Info("map refresher stopped")
	}
}
