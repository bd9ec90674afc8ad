package ingest

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/senatus-ai/senatus/internal/imaging"
)

// DefaultScreenshotTolerance bounds how far a capture may sit from an
// event's timestamp and still be associated with it.
const DefaultScreenshotTolerance = 30 * time.Second

var screenshotExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ScreenshotMeta is what the capture filename encodes. The tracker
// names files YYYY-MM-DD_HH-MM-SS_TZ_width_height_id_monitor.jpg.
type ScreenshotMeta struct {
	Path      string
	Timestamp time.Time
	Width     int
	Height    int
	ID        int64
	Monitor   int
	Thumbnail bool
}

// ParseScreenshotName decodes capture metadata from a filename. The
// second return is false for files that do not follow the scheme.
func ParseScreenshotName(path string) (ScreenshotMeta, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	thumbnail := strings.HasSuffix(stem, ".thumbnail")
	stem = strings.TrimSuffix(stem, ".thumbnail")

	parts := strings.Split(stem, "_")
	if len(parts) < 7 {
		return ScreenshotMeta{}, false
	}

	ts, err := parseScreenshotTime(parts[0], parts[1], parts[2])
	if err != nil {
		return ScreenshotMeta{}, false
	}

	width, err := strconv.Atoi(parts[3])
	if err != nil {
		return ScreenshotMeta{}, false
	}
	height, err := strconv.Atoi(parts[4])
	if err != nil {
		return ScreenshotMeta{}, false
	}
	id, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return ScreenshotMeta{}, false
	}
	monitor, err := strconv.Atoi(parts[6])
	if err != nil {
		return ScreenshotMeta{}, false
	}

	return ScreenshotMeta{
		Path:      path,
		Timestamp: ts,
		Width:     width,
		Height:    height,
		ID:        id,
		Monitor:   monitor,
		Thumbnail: thumbnail,
	}, true
}

// parseScreenshotTime assembles a timestamp from the date, time and
// zone segments. The zone segment "08-00" means UTC+08:00; anything
// unrecognized falls back to UTC.
func parseScreenshotTime(dateStr, timeStr, zoneStr string) (time.Time, error) {
	loc := time.UTC
	if hh, mm, ok := strings.Cut(zoneStr, "-"); ok {
		hours, errH := strconv.Atoi(hh)
		minutes, errM := strconv.Atoi(mm)
		if errH == nil && errM == nil {
			offset := hours*3600 + minutes*60
			loc = time.FixedZone(fmt.Sprintf("UTC+%02d:%02d", hours, minutes), offset)
		}
	}

	clock := strings.ReplaceAll(timeStr, "-", ":")
	return time.ParseInLocation("2006-01-02 15:04:05", dateStr+" "+clock, loc)
}

// ScreenshotIndex maps timestamps to capture files under a directory
// tree. Build scans once; lookups binary-search the sorted index.
type ScreenshotIndex struct {
	root   string
	logger *slog.Logger
	metas  []ScreenshotMeta
	built  bool
}

// NewScreenshotIndex creates an index rooted at dir. Call Build before
// looking anything up.
func NewScreenshotIndex(dir string, logger *slog.Logger) *ScreenshotIndex {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScreenshotIndex{root: dir, logger: logger}
}

// Build walks the capture directory and indexes every parseable
// filename. Thumbnails are skipped. A missing directory yields an
// empty index, not an error.
func (ix *ScreenshotIndex) Build() error {
	if ix.built {
		return nil
	}

	if _, err := os.Stat(ix.root); err != nil {
		ix.logger.Warn("screenshot directory not found", "path", ix.root)
		ix.built = true
		return nil
	}

	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !screenshotExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		meta, ok := ParseScreenshotName(path)
		if !ok || meta.Thumbnail {
			return nil
		}
		ix.metas = append(ix.metas, meta)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index screenshots: %w", err)
	}

	sort.Slice(ix.metas, func(i, j int) bool {
		return ix.metas[i].Timestamp.Before(ix.metas[j].Timestamp)
	})
	ix.built = true
	ix.logger.Info("screenshot index built", "path", ix.root, "count", len(ix.metas))
	return nil
}

// Count returns how many captures the index holds.
func (ix *ScreenshotIndex) Count() int { return len(ix.metas) }

// FindClosest returns the capture nearest ts, if one sits within the
// tolerance.
func (ix *ScreenshotIndex) FindClosest(ts time.Time, tolerance time.Duration) (ScreenshotMeta, bool) {
	if len(ix.metas) == 0 {
		return ScreenshotMeta{}, false
	}

	idx := sort.Search(len(ix.metas), func(i int) bool {
		return !ix.metas[i].Timestamp.Before(ts)
	})

	best := -1
	bestDiff := tolerance + 1
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(ix.metas) {
			continue
		}
		diff := ix.metas[i].Timestamp.Sub(ts)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}

	if best < 0 || bestDiff > tolerance {
		return ScreenshotMeta{}, false
	}
	return ix.metas[best], true
}

// PlaneFor loads and decodes the capture nearest ts. It returns nil
// when no capture is close enough or the file cannot be decoded; a
// missing frame is an ordinary condition for the pipeline, not an
// error.
func (ix *ScreenshotIndex) PlaneFor(ts time.Time, tolerance time.Duration) *imaging.Plane {
	meta, ok := ix.FindClosest(ts, tolerance)
	if !ok {
		return nil
	}

	plane, err := LoadPlane(meta.Path)
	if err != nil {
		ix.logger.Warn("failed to load screenshot", "path", meta.Path, "error", err)
		return nil
	}
	return plane
}

// LoadPlane decodes an image file into a luminance plane.
func LoadPlane(path string) (*imaging.Plane, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot %s: %w", path, err)
	}
	return imaging.FromImage(img), nil
}
