package reports

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubReportRepo struct {
	buildCalls int
}

func (s *stubReportRepo) AssetCountsByStatus(ctx context.Context) (map[string]int64, error) {
	s.buildCalls++
	return map[string]int64{"in_use": 12, "in_repair": 3}, nil
}

func (s *stubReportRepo) TicketCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{"open": 5, "closed": 40}, nil
}

func (s *stubReportRepo) OpenRepairCount(ctx context.Context) (int64, error) {
	return 3, nil
}

func (s *stubReportRepo) ActiveIssuanceCount(ctx context.Context) (int64, error) {
	return 9, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSummaryServedFromCache(t *testing.T) {
	repo := &stubReportRepo{}
	svc := NewService(repo, testRedis(t), nil)
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(12), first.AssetsByStatus["in_use"])
	require.Equal(t, int64(9), first.ActiveIssuances)
	require.Equal(t, 1, repo.buildCalls)

	second, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, first.GeneratedAt.Unix(), second.GeneratedAt.Unix())
	require.Equal(t, 1, repo.buildCalls)
}

func TestSummaryWithoutCacheStillBuilds(t *testing.T) {
	repo := &stubReportRepo{}
	svc := NewService(repo, nil, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), summary.TicketsByStatus["open"])
	require.Equal(t, int64(3), summary.OpenRepairs)
}

func TestRefreshRewritesCache(t *testing.T) {
	repo := &stubReportRepo{}
	svc := NewService(repo, testRedis(t), nil)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.buildCalls)

	// The warmup result must satisfy the next dashboard load.
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.buildCalls)
}
