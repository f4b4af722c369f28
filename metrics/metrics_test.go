package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func TestWithdrawalViewsRecord(t *testing.T) {
	require.NoError(t, view.Register(GovernanceWithdrawalsView, GovernanceWithdrawalRejectionView))
	defer view.Unregister(GovernanceWithdrawalsView, GovernanceWithdrawalRejectionView)

	ctx := context.Background()
	stats.Record(ctx, GovernanceWithdrawals.M(1))
	stats.Record(ctx, GovernanceWithdrawals.M(1))
	require.NoError(t, stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(ExitCode, "33")}, GovernanceWithdrawalRejection.M(1)))

	rows, err := view.RetrieveData(GovernanceWithdrawalsView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 2, rows[0].Data.(*view.CountData).Value)

	rows, err = view.RetrieveData(GovernanceWithdrawalRejectionView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "33", rows[0].Tags[0].Value)
}

func TestClampInt64(t *testing.T) {
	require.EqualValues(t, 5, ClampInt64(5))
	require.EqualValues(t, int64(1<<63-1), ClampInt64(^uint64(0)))
}

func TestTimerUsesClock(t *testing.T) {
	require.NoError(t, view.Register(TransactionApplyDurationView))
	defer view.Unregister(TransactionApplyDurationView)

	mc := clock.NewMock()
	stop := Timer(context.Background(), mc, TransactionApplyMilliseconds)
	mc.Add(250 * time.Millisecond)
	require.Equal(t, 250*time.Millisecond, stop())

	rows, err := view.RetrieveData(TransactionApplyDurationView.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	dist := rows[0].Data.(*view.DistributionData)
	require.EqualValues(t, 1, dist.Count)
	require.InDelta(t, 250.0, dist.Mean, 1e-9)
}
