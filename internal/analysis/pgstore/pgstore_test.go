package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/herdsight/internal/analysis"
	"github.com/linnemanlabs/herdsight/internal/analysis/pgstore"
	"github.com/linnemanlabs/herdsight/internal/postgres"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("HERDSIGHT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("HERDSIGHT_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &analysis.Result{
		ID:       "test-put-get-001",
		FarmCode: "GM",
		Language: "es",
		Months:   4,
		Status:   analysis.StatusComplete,
		Report: &analysis.CombinedReport{
			FarmCode:   "GM",
			Overview:   "stable",
			UrgentKPIs: []string{"pct_cetosis"},
			Domains: map[string]analysis.DomainAnalysis{
				"Health": {Domain: "Health", Summary: "ketosis trending up"},
			},
		},
		ReportPath:  "/tmp/report.pdf",
		CreatedAt:   now,
		CompletedAt: now.Add(30 * time.Second),
		Duration:    30.0,
	}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}
	if got.Status != analysis.StatusComplete {
		t.Errorf("Status = %q, want complete", got.Status)
	}
	if got.Report == nil || got.Report.Overview != "stable" {
		t.Errorf("Report = %+v, want overview stable", got.Report)
	}
	if got.ReportPath != "/tmp/report.pdf" {
		t.Errorf("ReportPath = %q", got.ReportPath)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing run")
	}
}

func TestGetByFarm_Latest(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Microsecond).UTC()
	_ = s.Put(ctx, &analysis.Result{
		ID: "test-farm-old", FarmCode: "BYFARM", Status: analysis.StatusComplete, CreatedAt: base.Add(-time.Hour),
	})
	_ = s.Put(ctx, &analysis.Result{
		ID: "test-farm-new", FarmCode: "BYFARM", Status: analysis.StatusPending, CreatedAt: base,
	})

	got, ok, err := s.GetByFarm(ctx, "BYFARM")
	if err != nil {
		t.Fatalf("GetByFarm: %v", err)
	}
	if !ok {
		t.Fatal("expected a run for the farm")
	}
	if got.ID != "test-farm-new" {
		t.Errorf("ID = %q, want the most recent run", got.ID)
	}
}
