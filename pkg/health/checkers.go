package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports the database unreachable when Ping fails.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping database")
		}
		return nil
	}
}

// PoolStater is implemented by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// PoolSaturationCheck fails while every pool connection is checked out.
// Pair it with a failure threshold so that short bursts do not flip
// readiness.
func PoolSaturationCheck(p PoolStater) CheckFunc {
	return func(_ context.Context) error {
		st := p.Stat()
		if maxConns := st.MaxConns(); maxConns > 0 && st.AcquiredConns() >= maxConns {
			return errors.Errorf("all %d connections acquired", maxConns)
		}
		return nil
	}
}

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when the most recent stop-the-world GC pause exceeds
// threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		if len(stats.Pause) > 0 && stats.Pause[0] > threshold {
			return errors.Errorf("GC pause %s exceeds threshold %s", stats.Pause[0], threshold)
		}
		return nil
	}
}
