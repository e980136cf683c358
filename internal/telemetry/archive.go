package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS parsing_records (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at            TEXT NOT NULL,
	session_id             TEXT,
	duration_ms            REAL NOT NULL,
	narrative_length       INTEGER NOT NULL,
	name_extracted         INTEGER NOT NULL,
	name_confidence        REAL NOT NULL,
	amount_extracted       INTEGER NOT NULL,
	amount_confidence      REAL NOT NULL,
	relationship           TEXT,
	relationship_extracted INTEGER NOT NULL,
	urgency                TEXT,
	urgency_extracted      INTEGER NOT NULL,
	fallbacks              TEXT,
	quality_score          REAL NOT NULL,
	error                  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parsing_recorded_at ON parsing_records(recorded_at);
`

// archiveTimeLayout is fixed-width so stored timestamps sort as text.
const archiveTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Archive persists parsing records to SQLite. Only the structural fields of
// ParsingRecord are stored.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the database at path and runs migrations.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Save inserts records in one transaction.
func (a *Archive) Save(ctx context.Context, recs []ParsingRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO parsing_records (
		recorded_at, session_id, duration_ms, narrative_length,
		name_extracted, name_confidence, amount_extracted, amount_confidence,
		relationship, relationship_extracted, urgency, urgency_extracted,
		fallbacks, quality_score, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.ExecContext(ctx,
			r.Timestamp.UTC().Format(archiveTimeLayout), r.SessionID, r.DurationMs, r.NarrativeLength,
			r.Name.Extracted, r.Name.Confidence, r.Amount.Extracted, r.Amount.Confidence,
			r.Relationship, r.RelationshipExtracted, r.Urgency, r.UrgencyExtracted,
			strings.Join(r.Fallbacks, ","), r.QualityScore, r.Error,
		)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PruneBefore deletes records stamped before t.
func (a *Archive) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM parsing_records WHERE recorded_at < ?`, t.UTC().Format(archiveTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune archive: %w", err)
	}
	return res.RowsAffected()
}

// Load returns archived records stamped at or after since, oldest first.
func (a *Archive) Load(ctx context.Context, since time.Time) ([]ParsingRecord, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT
		recorded_at, session_id, duration_ms, narrative_length,
		name_extracted, name_confidence, amount_extracted, amount_confidence,
		relationship, relationship_extracted, urgency, urgency_extracted,
		fallbacks, quality_score, error
	FROM parsing_records WHERE recorded_at >= ? ORDER BY recorded_at, id`,
		since.UTC().Format(archiveTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var out []ParsingRecord
	for rows.Next() {
		var (
			r         ParsingRecord
			ts        string
			fallbacks string
		)
		if err := rows.Scan(&ts, &r.SessionID, &r.DurationMs, &r.NarrativeLength,
			&r.Name.Extracted, &r.Name.Confidence, &r.Amount.Extracted, &r.Amount.Confidence,
			&r.Relationship, &r.RelationshipExtracted, &r.Urgency, &r.UrgencyExtracted,
			&fallbacks, &r.QualityScore, &r.Error); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp, err = time.Parse(archiveTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		if fallbacks != "" {
			r.Fallbacks = strings.Split(fallbacks, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Flush archives records buffered after the cursor and returns the new
// cursor. The cursor counts insertions, not time, so records that share a
// timestamp with an earlier flush are still written exactly once.
func (r *Recorder) Flush(ctx context.Context, a *Archive, cursor uint64) (uint64, error) {
	fresh, next := r.parsingAfter(cursor)
	if len(fresh) == 0 {
		return next, nil
	}
	if err := a.Save(ctx, fresh); err != nil {
		return cursor, err
	}
	return next, nil
}

// RunArchiver flushes to a every interval and prunes rows past retention
// until ctx is done. Errors are logged, not returned.
func (r *Recorder) RunArchiver(ctx context.Context, a *Archive, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var cursor uint64
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := r.Flush(flushCtx, a, cursor); err != nil {
				r.logger.Error("final telemetry flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			next, err := r.Flush(ctx, a, cursor)
			if err != nil {
				r.logger.Error("telemetry flush failed", "error", err)
				continue
			}
			cursor = next
			if n, err := a.PruneBefore(ctx, r.now().Add(-r.cfg.Retention)); err != nil {
				r.logger.Error("telemetry archive prune failed", "error", err)
			} else if n > 0 {
				r.logger.Info("telemetry archive pruned", "rows", n)
			}
		}
	}
}
