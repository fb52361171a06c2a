package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyWorkerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: WorkerJobReasonDeadlineExceeded},
		{name: "pg_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: WorkerJobReasonDBLockTimeout},
		{name: "mysql_lock_timeout", err: &mysql.MySQLError{Number: 1205}, want: WorkerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: WorkerJobReasonSerializationFailure},
		{name: "mysql_deadlock", err: &mysql.MySQLError{Number: 1213}, want: WorkerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: WorkerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: WorkerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyWorkerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestWorkerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newWorkerMetrics(registry, Config{ServiceName: "storefront", Environment: "test"})

	m.IncJobRun("fulfillment_retry")
	m.AddBatchProcessed("fulfillment_retry", "resolved", 3)
	m.IncJobError("fulfillment_retry", &pgconn.PgError{Code: "40001"})
	m.ObserveJobDuration("fulfillment_retry", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("fulfillment_retry")); got != 1 {
		t.Fatalf("expected 1 job run, got %v", got)
	}
	if got := testutil.ToFloat64(m.batchProcessed.WithLabelValues("fulfillment_retry", "resolved")); got != 3 {
		t.Fatalf("expected 3 processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues("fulfillment_retry", WorkerJobReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected 1 serialization error, got %v", got)
	}
}
