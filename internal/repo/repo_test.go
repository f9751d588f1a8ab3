package repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/alimtalk/internal/model"
)

func TestUsageDay(t *testing.T) {
	ts := time.Date(2025, 9, 5, 20, 0, 0, 0, time.Local).UnixMilli()
	require.Equal(t, "2025-09-05", usageDay(ts))
	require.Equal(t, time.Now().Format(time.DateOnly), usageDay(0))
}

func TestClampScore(t *testing.T) {
	require.Equal(t, float32(1), clampScore(1.0000002))
	require.Equal(t, float32(-1), clampScore(-1.5))
	require.InDelta(t, 0.25, clampScore(0.25), 1e-9)
}

func TestBuildChunkInsert(t *testing.T) {
	sqlStr, args, err := buildChunkInsert("embed-v1", 10, []model.PolicyChunk{
		{ID: "a_001", Category: "운영정책", Text: "야간 발송 제한", Embedding: []float32{1, 0}},
		{ID: "b_002", Category: "심사정책", Text: "광고 금지", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sqlStr, "INSERT INTO"))
	require.Contains(t, sqlStr, "policy_chunks")
	require.Contains(t, sqlStr, "$12")
	require.NotContains(t, sqlStr, "?")
	require.Len(t, args, 12)
	require.Contains(t, args, "a_001")
	require.Contains(t, args, "b_002")
	require.Contains(t, args, 10)
	require.Contains(t, args, 11)
	require.Contains(t, args, "embed-v1")
}
