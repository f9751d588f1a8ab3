package dbutil

import (
	"testing"

	"github.com/didi/gendry/builder"
	"github.com/stretchr/testify/require"
)

func TestFinalize_RebindsPlaceholders(t *testing.T) {
	sqlStr, args, err := builder.BuildSelect("generated_templates", map[string]interface{}{
		"request_id": int64(7),
		"_orderby":   "id desc",
		"_limit":     []uint{20, 10},
	}, []string{"id"})
	require.NoError(t, err)
	sqlStr, args = Finalize(sqlStr, args)
	require.NotContains(t, sqlStr, "?")
	require.Contains(t, sqlStr, "$1")
	require.Contains(t, sqlStr, "LIMIT $2 OFFSET $3")
	require.Equal(t, []interface{}{int64(7), uint(10), uint(20)}, args)
}
