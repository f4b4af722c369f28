package metrics

import (
	"context"
	"time"

	"github.com/raulk/clock"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Distributions
var defaultMillisecondsDistribution = view.Distribution(
	0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, // Very short intervals for fast operations
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100, // 10 ms intervals up to 100 ms
	150, 200, 250, 300, 350, 400, 450, 500, // 50 ms intervals from 100 to 500 ms
	600, 700, 800, 900, 1000,
)

var invocationDepthDistribution = view.Distribution(0, 1, 2, 3, 4, 5)

// Tags
var (
	ExitCode, _       = tag.NewKey("exit_code")
	Program, _        = tag.NewKey("program")
	AccrualProfile, _ = tag.NewKey("accrual_profile")
)

// Measures
var (
	TransactionApplied            = stats.Int64("vm/transaction_applied", "Counter for transactions applied successfully", stats.UnitDimensionless)
	TransactionFailure            = stats.Int64("vm/transaction_failure", "Counter for transactions rejected with an exit code", stats.UnitDimensionless)
	TransactionApplyMilliseconds  = stats.Float64("vm/transaction_apply_ms", "Duration of transaction application in milliseconds", stats.UnitMilliseconds)
	InvocationDepth               = stats.Int64("vm/invocation_depth", "Depth of program invocations", stats.UnitDimensionless)
	GovernanceWithdrawals         = stats.Int64("governance/withdrawals", "Counter for completed governing token withdrawals", stats.UnitDimensionless)
	GovernanceWithdrawnAmount     = stats.Int64("governance/withdrawn_amount", "Governing tokens moved out of custody", stats.UnitDimensionless)
	GovernanceAccrualInvocations  = stats.Int64("governance/accrual_invocations", "Counter for delegated reward accrual calls", stats.UnitDimensionless)
	GovernanceWithdrawalRejection = stats.Int64("governance/withdrawal_rejected", "Counter for withdrawals rejected by a pipeline gate", stats.UnitDimensionless)
)

var (
	TransactionAppliedView = &view.View{
		Measure:     TransactionApplied,
		Aggregation: view.Count(),
	}
	TransactionFailureView = &view.View{
		Measure:     TransactionFailure,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ExitCode},
	}
	TransactionApplyDurationView = &view.View{
		Measure:     TransactionApplyMilliseconds,
		Aggregation: defaultMillisecondsDistribution,
	}
	InvocationDepthView = &view.View{
		Measure:     InvocationDepth,
		Aggregation: invocationDepthDistribution,
		TagKeys:     []tag.Key{Program},
	}
	GovernanceWithdrawalsView = &view.View{
		Measure:     GovernanceWithdrawals,
		Aggregation: view.Count(),
	}
	GovernanceWithdrawnAmountView = &view.View{
		Measure:     GovernanceWithdrawnAmount,
		Aggregation: view.Sum(),
	}
	GovernanceAccrualInvocationsView = &view.View{
		Measure:     GovernanceAccrualInvocations,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccrualProfile},
	}
	GovernanceWithdrawalRejectionView = &view.View{
		Measure:     GovernanceWithdrawalRejection,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ExitCode},
	}
)

// DefaultViews is an array of OpenCensus views for metric gathering purposes
var DefaultViews = []*view.View{
	TransactionAppliedView,
	TransactionFailureView,
	TransactionApplyDurationView,
	InvocationDepthView,
	GovernanceWithdrawalsView,
	GovernanceWithdrawnAmountView,
	GovernanceAccrualInvocationsView,
	GovernanceWithdrawalRejectionView,
}

// Timer is a function stopwatch on clk, calling it starts the timer,
// calling the returned function will record the duration in milliseconds.
func Timer(ctx context.Context, clk clock.Clock, m *stats.Float64Measure) func() time.Duration {
	start := clk.Now()
	return func() time.Duration {
		d := clk.Since(start)
		stats.Record(ctx, m.M(float64(d.Nanoseconds())/1e6))
		return d
	}
}

// ClampInt64 converts token amounts for int64 measures.
func ClampInt64(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}
