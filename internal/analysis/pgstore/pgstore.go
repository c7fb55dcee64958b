// Package pgstore provides a PostgreSQL implementation of analysis.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/herdsight/internal/analysis"
)

var tracer = otel.Tracer("github.com/linnemanlabs/herdsight/internal/analysis/pgstore")

//go:embed schema.sql
var schema string

// Store persists analysis runs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New verifies the connection, applies the schema, and returns a ready
// Store over the given pool. The pool's lifecycle stays with the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const runColumns = `id, farm_code, language, months, status, error, report,
	report_path, created_at, completed_at, duration_s`

// Get retrieves a run record by ID.
func (s *Store) Get(ctx context.Context, id string) (*analysis.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE id = $1`
	r, err := scanRunRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetByFarm retrieves the most recent run record for a farm.
func (s *Store) GetByFarm(ctx context.Context, farmCode string) (*analysis.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByFarm", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE farm_code = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanRunRow(s.pool.QueryRow(ctx, query, farmCode))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates a run record.
func (s *Store) Put(ctx context.Context, r *analysis.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	var reportJSON []byte
	if r.Report != nil {
		var err error
		reportJSON, err = json.Marshal(r.Report)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("marshal report: %w", err)
		}
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO analysis_runs (
		id, farm_code, language, months, status, error, report,
		report_path, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (id) DO UPDATE SET
		farm_code    = EXCLUDED.farm_code,
		language     = EXCLUDED.language,
		months       = EXCLUDED.months,
		status       = EXCLUDED.status,
		error        = EXCLUDED.error,
		report       = EXCLUDED.report,
		report_path  = EXCLUDED.report_path,
		completed_at = EXCLUDED.completed_at,
		duration_s   = EXCLUDED.duration_s`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.FarmCode, r.Language, r.Months, string(r.Status), r.Error, reportJSON,
		r.ReportPath, r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// scanRunRow scans a single row into an analysis.Result. Returns
// (nil, nil) when no row is found.
func scanRunRow(row pgx.Row) (*analysis.Result, error) {
	var (
		r           analysis.Result
		status      string
		reportJSON  []byte
		completedAt *time.Time
	)

	err := row.Scan(
		&r.ID, &r.FarmCode, &r.Language, &r.Months, &status, &r.Error, &reportJSON,
		&r.ReportPath, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = analysis.Status(status)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}
	if len(reportJSON) > 0 {
		r.Report = &analysis.CombinedReport{}
		if err := json.Unmarshal(reportJSON, r.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}
	return &r, nil
}
