package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/alimtalk/internal/repo"
)

type fakePurger struct {
	cutoff int64
	err    error
}

func (f *fakePurger) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeUsageReader struct {
	day string
}

func (f *fakeUsageReader) GetDaily(_ context.Context, day string) (*repo.DailyTokenUsage, error) {
	f.day = day
	return &repo.DailyTokenUsage{Day: day, Requests: 2}, nil
}

func TestEmbeddingCacheCleanupJob_Cutoff(t *testing.T) {
	now := time.Date(2025, 9, 30, 3, 30, 0, 0, time.UTC)
	purger := &fakePurger{}
	j := NewEmbeddingCacheCleanupJob(purger, 7)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-7*24*time.Hour).UnixMilli(), purger.cutoff)
	require.Equal(t, "embedding_cache_cleanup", j.Name())

	purger.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
}

func TestEmbeddingCacheCleanupJob_DefaultAge(t *testing.T) {
	j := NewEmbeddingCacheCleanupJob(nil, 0)
	require.Equal(t, 30*24*time.Hour, j.maxAge)
	require.NoError(t, j.Run(context.Background()))
}

func TestTokenUsageReportJob_ReadsPreviousDay(t *testing.T) {
	reader := &fakeUsageReader{}
	j := NewTokenUsageReportJob(reader)
	j.now = func() time.Time { return time.Date(2025, 9, 1, 0, 5, 0, 0, time.Local) }

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, "2025-08-31", reader.day)
}
