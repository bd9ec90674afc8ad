// Package ingest reads ManicTime tracker data: activity rows from the
// reports database and the screenshot directory that accompanies them.
// All access is read-only; the tracker's files are never modified.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqlTimeLayout = "2006-01-02 15:04:05"

// activityQuery joins activity rows with their group and application
// metadata so one row carries everything the parser needs.
const activityQuery = `
	SELECT
		a.ReportId,
		a.ActivityId,
		a.GroupId,
		a.StartUtcTime,
		a.EndUtcTime,
		a.Other,
		g.CommonId,
		g.Name AS GroupName,
		g.Key AS GroupKey,
		cg.Name AS AppName,
		cg.UpperKey
	FROM Ar_Activity a
	LEFT JOIN Ar_Group g ON a.ReportId = g.ReportId AND a.GroupId = g.GroupId
	LEFT JOIN Ar_CommonGroup cg ON g.CommonId = cg.CommonId
	WHERE a.StartUtcTime >= ? AND a.EndUtcTime <= ?
	ORDER BY a.StartUtcTime
`

const (
	activityCountQuery = `SELECT COUNT(*) FROM Ar_Activity`
	lastActivityQuery  = `SELECT MAX(EndUtcTime) FROM Ar_Activity`
	dateRangeQuery     = `SELECT MIN(StartUtcTime), MAX(EndUtcTime) FROM Ar_Activity`
)

// ActivityRow is one joined record from the reports database. Optional
// columns come back as empty strings when the joins found nothing.
type ActivityRow struct {
	ReportID   int64
	ActivityID int64
	GroupID    int64
	StartUTC   time.Time
	EndUTC     time.Time
	Other      string
	GroupName  string
	GroupKey   string
	AppName    string
	UpperKey   string
}

// Store provides read-only access to a ManicTime reports database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the reports database in read-only mode.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reports database not found: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open reports database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping reports database: %w", err)
	}

	logger.Info("connected to reports database", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryActivities returns all activity rows whose span falls inside the
// given UTC window, ordered by start time.
func (s *Store) QueryActivities(ctx context.Context, start, end time.Time) ([]ActivityRow, error) {
	rows, err := s.db.QueryContext(ctx, activityQuery,
		start.UTC().Format(sqlTimeLayout),
		end.UTC().Format(sqlTimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var out []ActivityRow
	for rows.Next() {
		var (
			row                 ActivityRow
			startRaw, endRaw    string
			other               sql.NullString
			commonID            sql.NullInt64
			groupName, groupKey sql.NullString
			appName, upperKey   sql.NullString
		)
		err := rows.Scan(
			&row.ReportID,
			&row.ActivityID,
			&row.GroupID,
			&startRaw,
			&endRaw,
			&other,
			&commonID,
			&groupName,
			&groupKey,
			&appName,
			&upperKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}

		row.StartUTC, err = parseSQLTime(startRaw)
		if err != nil {
			s.logger.Warn("skipping activity with bad start time",
				"activity_id", row.ActivityID, "value", startRaw)
			continue
		}
		row.EndUTC, err = parseSQLTime(endRaw)
		if err != nil {
			s.logger.Warn("skipping activity with bad end time",
				"activity_id", row.ActivityID, "value", endRaw)
			continue
		}

		row.Other = other.String
		row.GroupName = groupName.String
		row.GroupKey = groupKey.String
		row.AppName = appName.String
		row.UpperKey = upperKey.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity rows: %w", err)
	}

	s.logger.Debug("queried activities", "count", len(out))
	return out, nil
}

// ActivityCount returns the total number of activity records.
func (s *Store) ActivityCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, activityCountQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

// LastActivityTime returns the end time of the most recent activity.
// The second return is false when the database holds no activities.
func (s *Store) LastActivityTime(ctx context.Context) (time.Time, bool, error) {
	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, lastActivityQuery).Scan(&raw); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last activity: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, false, nil
	}
	ts, err := parseSQLTime(raw.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// DateRange returns the earliest start and latest end across all
// activities. The third return is false for an empty database.
func (s *Store) DateRange(ctx context.Context) (time.Time, time.Time, bool, error) {
	var minRaw, maxRaw sql.NullString
	if err := s.db.QueryRowContext(ctx, dateRangeQuery).Scan(&minRaw, &maxRaw); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to query date range: %w", err)
	}
	if !minRaw.Valid || !maxRaw.Valid {
		return time.Time{}, time.Time{}, false, nil
	}

	minTime, err := parseSQLTime(minRaw.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	maxTime, err := parseSQLTime(maxRaw.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return minTime, maxTime, true, nil
}

// parseSQLTime handles the timestamp shapes ManicTime writes into the
// reports database. Values are UTC without an explicit zone marker.
func parseSQLTime(value string) (time.Time, error) {
	layouts := []string{
		sqlTimeLayout,
		"2006-01-02 15:04:05.999999999",
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
