package ingest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Reader ties the reports database, the activity parser and the
// screenshot index together into one event source for the engine.
type Reader struct {
	store     *Store
	parser    *Parser
	index     *ScreenshotIndex
	tolerance time.Duration
	limit     int
	logger    *slog.Logger
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Location is the zone event timestamps are converted into. Nil
	// means the process-local zone.
	Location *time.Location

	// Tolerance bounds screenshot association. Zero means
	// DefaultScreenshotTolerance.
	Tolerance time.Duration

	// Limit caps how many events a single Events call returns. Zero
	// means unlimited.
	Limit int

	Logger *slog.Logger
}

// NewReader opens the reports database and indexes the screenshot
// directory. An empty screenshotsDir disables screenshot association.
func NewReader(dbPath, screenshotsDir string, opts ReaderOptions) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := Open(dbPath, logger)
	if err != nil {
		return nil, err
	}

	var index *ScreenshotIndex
	if screenshotsDir != "" {
		index = NewScreenshotIndex(screenshotsDir, logger)
		if err := index.Build(); err != nil {
			store.Close()
			return nil, err
		}
	}

	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultScreenshotTolerance
	}

	return &Reader{
		store:     store,
		parser:    NewParser(opts.Location, logger),
		index:     index,
		tolerance: tolerance,
		limit:     opts.Limit,
		logger:    logger,
	}, nil
}

// Close releases the underlying database connection.
func (r *Reader) Close() error {
	return r.store.Close()
}

// Events returns parsed events for the UTC window, in chronological
// order, with screenshot paths attached where a capture sits within
// the association tolerance.
func (r *Reader) Events(ctx context.Context, start, end time.Time) ([]models.ActivityEvent, error) {
	rows, err := r.store.QueryActivities(ctx, start, end)
	if err != nil {
		return nil, err
	}

	events := r.parser.ParseBatch(rows)
	if r.limit > 0 && len(events) > r.limit {
		events = events[:r.limit]
	}

	if r.index != nil {
		for i := range events {
			meta, ok := r.index.FindClosest(events[i].Timestamp, r.tolerance)
			if ok {
				events[i].ScreenshotPath = meta.Path
			}
		}
	}

	r.logger.Info("loaded events", "count", len(events),
		"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))
	return events, nil
}

// PlaneFor decodes the capture associated with an event, or nil when
// the event has none.
func (r *Reader) PlaneFor(event models.ActivityEvent) *imaging.Plane {
	if event.ScreenshotPath == "" {
		return nil
	}
	plane, err := LoadPlane(event.ScreenshotPath)
	if err != nil {
		r.logger.Warn("failed to load screenshot",
			"path", event.ScreenshotPath, "error", err)
		return nil
	}
	return plane
}

// Store exposes the underlying database handle for status queries.
func (r *Reader) Store() *Store { return r.store }
