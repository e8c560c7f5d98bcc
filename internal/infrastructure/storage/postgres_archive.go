package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"GreyhoundTips/internal/domain"
	"GreyhoundTips/internal/ports"
)

// ReportArchive keeps a history of delivered reports in Postgres. The
// archive is optional: the bot runs fine on flat files alone, the database
// only adds queryable history.
type ReportArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ ports.Archiver = (*ReportArchive)(nil)

func NewReportArchive(ctx context.Context, dsn string, logger *slog.Logger) (*ReportArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	a := &ReportArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger.With("component", "archive"),
	}
	if err := a.migrate(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ReportArchive) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS reports (
			report_date  date PRIMARY KEY,
			title        text NOT NULL,
			body         text NOT NULL,
			selections   int  NOT NULL,
			created_at   timestamptz NOT NULL
		)`
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}
	return nil
}

// SaveReport stores a delivered report, replacing any earlier report for
// the same date (a retried delivery overwrites, not duplicates).
func (a *ReportArchive) SaveReport(ctx context.Context, report domain.DeliveredReport) error {
	query := a.builder.
		Insert("reports").
		Columns("report_date", "title", "body", "selections", "created_at").
		Values(report.Date, report.Title, report.Body, report.Selections, report.CreatedAt).
		Suffix(`ON CONFLICT (report_date) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			selections = EXCLUDED.selections,
			created_at = EXCLUDED.created_at`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := a.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	a.logger.Info("report archived", "date", report.Date, "selections", report.Selections)
	return nil
}

// RecentReports returns the latest reports, newest first.
func (a *ReportArchive) RecentReports(ctx context.Context, limit int) ([]domain.DeliveredReport, error) {
	query := a.builder.
		Select("report_date", "title", "body", "selections", "created_at").
		From("reports").
		OrderBy("report_date DESC").
		Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.DeliveredReport
	for rows.Next() {
		var r domain.DeliveredReport
		var date time.Time
		if err := rows.Scan(&date, &r.Title, &r.Body, &r.Selections, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.Date = date.Format("2006-01-02")
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// Close releases the database connection pool.
func (a *ReportArchive) Close() error {
	return a.db.Close()
}
