package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/alimtalk/internal/ai"
	"github.com/xxxsen/alimtalk/internal/config"
	"github.com/xxxsen/alimtalk/internal/filestore"
	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
	"github.com/xxxsen/alimtalk/internal/vectorindex"
)

type lengthEmbedder struct {
	calls atomic.Int32
	fail  string
}

func (e *lengthEmbedder) Embed(_ context.Context, text string, taskType string) ([]float32, error) {
	e.calls.Add(1)
	if taskType != ai.TaskRetrievalDocument {
		return nil, errors.New("unexpected task type")
	}
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("upstream down")
	}
	return []float32{1, float32(len([]rune(text)))}, nil
}

func (e *lengthEmbedder) ModelName() string {
	return "test-embed"
}

type recordingWriter struct {
	idx *vectorindex.Index
}

func (w *recordingWriter) ReplaceAll(_ context.Context, idx *vectorindex.Index) error {
	w.idx = idx
	return nil
}

func TestClassifyFile(t *testing.T) {
	cases := map[string]string{
		"kakao-content-guide.md":           CategoryContentGuide,
		"audit-black-list.md":              CategoryAuditBlocked,
		"audit-white-list.md":              CategoryAuditAllowed,
		"audit.md":                         CategoryAudit,
		"operations.md":                    CategoryOperations,
		"publictemplate.md":                CategoryPublicSamples,
		"infotalk.md":                      CategoryBasicPolicy,
		"misc.md":                          CategoryGeneral,
		"dir/Kakao-Content-Guide_v2.jsonl": CategoryContentGuide,
	}
	for name, want := range cases {
		require.Equal(t, want, ClassifyFile(name), name)
	}
}

func TestChunkMarkdown_SplitsOnSections(t *testing.T) {
	body := strings.Repeat("알림톡은 정보성 메시지만 발송할 수 있습니다. ", 4)
	md := "# 발송 기준\n\n" + body + "\n\n## 금지 사항\n\n" + body + "\n\n### 세부\n\n광고 문구 금지\n\n# 짧음\n\n끝\n"
	chunks := ChunkMarkdown(context.Background(), "audit-black-list.md", []byte(md))
	require.Len(t, chunks, 2)
	require.Equal(t, "audit-black-list_001", chunks[0].ID)
	require.Equal(t, "audit-black-list_002", chunks[1].ID)
	require.True(t, strings.HasPrefix(chunks[0].Text, "발송 기준\n"))
	require.True(t, strings.HasPrefix(chunks[1].Text, "금지 사항\n"))
	require.Contains(t, chunks[1].Text, "세부")
	require.Contains(t, chunks[1].Text, "광고 문구 금지")
	for _, c := range chunks {
		require.Equal(t, CategoryAuditBlocked, c.Category)
	}
}

func TestChunkMarkdown_SplitsLongSections(t *testing.T) {
	para := strings.Repeat("가", 300)
	md := "# 긴 섹션\n\n" + para + "\n\n" + para + "\n"
	chunks := ChunkMarkdown(context.Background(), "operations.md", []byte(md))
	require.Len(t, chunks, 2)
}

func TestParseJSONL(t *testing.T) {
	data := []byte(`{"chunk_id":"a_001","content":" 첫 번째 ","metadata":{"document_type":"운영정책","source_file":"operations.md"}}

{"chunk_id":"a_002","content":"두 번째","metadata":{"source_file":"audit-white-list.md"}}
{"chunk_id":"a_003","content":"   ","metadata":{}}
{"chunk_id":"a_004","content":"네 번째","metadata":{}}
`)
	chunks, err := ParseJSONL("infotalk.jsonl", data)
	require.NoError(t, err)
	require.Equal(t, []model.PolicyChunk{
		{ID: "a_001", Category: "운영정책", Text: "첫 번째"},
		{ID: "a_002", Category: CategoryAuditAllowed, Text: "두 번째"},
		{ID: "a_004", Category: CategoryBasicPolicy, Text: "네 번째"},
	}, chunks)
}

func TestParseJSONL_Invalid(t *testing.T) {
	_, err := ParseJSONL("x.jsonl", []byte("{not json}\n"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Contains(t, err.Error(), "x.jsonl:1")

	_, err = ParseJSONL("x.jsonl", []byte(`{"content":"no id"}`))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestLoadDir_SortedOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jsonl"), []byte(`{"chunk_id":"b_1","content":"b"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte(`{"chunk_id":"a_1","content":"a"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.md"), 0o755))

	chunks, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "a_1", chunks[0].ID)
	require.Equal(t, "b_1", chunks[1].ID)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(context.Background(), t.TempDir())
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestBuilder_BuildKeepsOrder(t *testing.T) {
	chunks := make([]model.PolicyChunk, 0, 20)
	for i := 0; i < 20; i++ {
		chunks = append(chunks, model.PolicyChunk{
			ID:       "c" + strings.Repeat("x", i),
			Category: CategoryGeneral,
			Text:     strings.Repeat("가", i+1),
		})
	}
	emb := &lengthEmbedder{}
	idx, err := NewBuilder(emb, 4).Build(context.Background(), chunks)
	require.NoError(t, err)
	require.Equal(t, int32(20), emb.calls.Load())
	require.Equal(t, 20, idx.Len())
	require.Equal(t, "test-embed", idx.ModelName())
	for i, c := range idx.Chunks() {
		require.Equal(t, chunks[i].ID, c.ID)
	}
}

func TestBuilder_EmbedFailure(t *testing.T) {
	chunks := []model.PolicyChunk{
		{ID: "ok", Category: CategoryGeneral, Text: "fine"},
		{ID: "bad", Category: CategoryGeneral, Text: "broken"},
	}
	_, err := NewBuilder(&lengthEmbedder{fail: "broken"}, 2).Build(context.Background(), chunks)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")
}

func TestPublishAndLoadSnapshot(t *testing.T) {
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	idx, err := NewBuilder(&lengthEmbedder{}, 2).Build(context.Background(), []model.PolicyChunk{
		{ID: "p1", Category: CategoryAudit, Text: "광고성 문구 금지"},
		{ID: "p2", Category: CategoryOperations, Text: "야간 발송 제한"},
	})
	require.NoError(t, err)

	writer := &recordingWriter{}
	require.NoError(t, Publish(context.Background(), idx, store, "index/policy.json", writer))
	require.Same(t, idx, writer.idx)

	loaded, err := LoadSnapshot(context.Background(), store, "index/policy.json")
	require.NoError(t, err)
	require.Equal(t, idx.Len(), loaded.Len())
	require.Equal(t, idx.ModelName(), loaded.ModelName())
	for i, c := range loaded.Chunks() {
		want := idx.Chunks()[i]
		require.Equal(t, want.ID, c.ID)
		require.Equal(t, want.Category, c.Category)
		require.InDeltaSlice(t, want.Embedding, c.Embedding, 1e-6)
	}

	_, err = LoadSnapshot(context.Background(), store, "index/missing.json")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
