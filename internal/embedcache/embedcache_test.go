package embedcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/alimtalk/internal/model"
)

type countingEmbedder struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string, _ string) ([]float32, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "m"
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string]*model.EmbeddingCache
	getErr  error
	saveErr error
}

func (s *memStore) Get(_ context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[modelName+taskType+contentHash]
	if !ok {
		return nil, false, nil
	}
	return row.Embedding, true, nil
}

func (s *memStore) Save(_ context.Context, item *model.EmbeddingCache) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = map[string]*model.EmbeddingCache{}
	}
	s.rows[item.ModelName+item.TaskType+item.ContentHash] = item
	return nil
}

func TestWrapLRU_CachesPerTaskAndText(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLRU(next, 16, time.Minute)

	a, err := e.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	a[0] = 999
	b, err := e.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, float32(5), b[0])
	require.Equal(t, int32(1), next.calls.Load())

	_, err = e.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, int32(2), next.calls.Load())
	require.Equal(t, "m", e.ModelName())
}

func TestWrapLRU_SharesConcurrentMisses(t *testing.T) {
	next := &countingEmbedder{delay: 20 * time.Millisecond}
	e := WrapLRU(next, 16, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Embed(context.Background(), "same", "RETRIEVAL_QUERY")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, next.calls.Load(), int32(2))
}

func TestWrapLRU_DisabledReturnsInner(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLRU(next, 0, time.Minute))
}

func TestWrapDB_HitAndMiss(t *testing.T) {
	next := &countingEmbedder{}
	store := &memStore{}
	e := WrapDB(next, store)

	_, err := e.Embed(context.Background(), "policy", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "policy", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, int32(1), next.calls.Load())
	require.Len(t, store.rows, 1)
	for _, row := range store.rows {
		require.Equal(t, 2, row.Dimension)
		require.Len(t, row.ContentHash, 64)
	}
}

func TestWrapDB_StoreFailuresAreBypassed(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapDB(next, &memStore{getErr: errors.New("read"), saveErr: errors.New("write")})

	vec, err := e.Embed(context.Background(), "abc", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, vec)
}

func TestWrapDB_UpstreamErrorPropagates(t *testing.T) {
	e := WrapDB(&countingEmbedder{err: errors.New("quota")}, &memStore{})
	_, err := e.Embed(context.Background(), "abc", "RETRIEVAL_QUERY")
	require.Error(t, err)
}
