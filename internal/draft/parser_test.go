package draft

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

func TestParse_FencedBlock(t *testing.T) {
	raw := "```json\n{\"title\":\"A\",\"template_content\":\"B\",\"compliance_notes\":\"C\"}\n```"
	d, tier, err := ParseWithTier(raw)
	require.NoError(t, err)
	require.Equal(t, TierFenced, tier)
	require.Equal(t, &model.TemplateDraft{Title: "A", TemplateContent: "B", ComplianceNotes: "C"}, d)
}

func TestParse_BracketScanDefaultsMissingFields(t *testing.T) {
	d, tier, err := ParseWithTier(`noise {"title":"A"} trailing`)
	require.NoError(t, err)
	require.Equal(t, TierBracket, tier)
	require.Equal(t, &model.TemplateDraft{Title: "A"}, d)
}

func TestParse_NoStructure(t *testing.T) {
	_, err := Parse("no structure at all")
	require.ErrorIs(t, err, appErr.ErrUnparsableResponse)
	var unparsable *appErr.UnparsableResponseError
	require.True(t, errors.As(err, &unparsable))
	require.Equal(t, "no structure at all", unparsable.Raw)
}

func TestParse_Tiers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		tier Tier
		want model.TemplateDraft
	}{
		{
			name: "fence without language",
			raw:  "here you go\n```\n{\"title\":\"T\",\"template_content\":\"#{고객명}님\"}\n```\nthanks",
			tier: TierFenced,
			want: model.TemplateDraft{Title: "T", TemplateContent: "#{고객명}님"},
		},
		{
			name: "broken fence falls through to bracket scan",
			raw:  "```json\nnot json\n``` {\"title\":\"B\"}",
			tier: TierBracket,
			want: model.TemplateDraft{Title: "B"},
		},
		{
			name: "content alias",
			raw:  `{"title":"T","content":"body"}`,
			tier: TierBracket,
			want: model.TemplateDraft{Title: "T", TemplateContent: "body"},
		},
		{
			name: "notes as list",
			raw:  `{"title":"T","compliance_notes":["정보성 메시지","광고 문구 없음"]}`,
			tier: TierBracket,
			want: model.TemplateDraft{Title: "T", ComplianceNotes: "정보성 메시지\n광고 문구 없음"},
		},
		{
			name: "scalar values formatted",
			raw:  `{"title":2025,"template_content":true,"compliance_notes":null}`,
			tier: TierBracket,
			want: model.TemplateDraft{Title: "2025", TemplateContent: "true"},
		},
		{
			name: "object value ignored",
			raw:  `{"title":{"nested":1}}`,
			tier: TierBracket,
			want: model.TemplateDraft{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, tier, err := ParseWithTier(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.tier, tier)
			require.Equal(t, tt.want, *d)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	for _, raw := range []string{
		"",
		"} backwards {",
		"[1, 2, 3]",
		"```json\n```",
		"{not valid json}",
	} {
		_, err := Parse(raw)
		require.ErrorIs(t, err, appErr.ErrUnparsableResponse, raw)
	}
}
