package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxRetries: attempts,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(ctx, fastRetry(3), func() (string, error) {
			calls++
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient failures then success", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(ctx, fastRetry(3), func() (int, error) {
			calls++
			if calls < 3 {
				return 0, &APIError{StatusCode: 503}
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(ctx, fastRetry(3), func() (int, error) {
			calls++
			return 0, errors.New("connection reset")
		})
		assert.EqualError(t, err, "connection reset")
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		for _, perm := range []error{
			ErrEmptyText,
			fmt.Errorf("%w: bad", ErrInvalidInput),
			&EmbeddingError{Provider: "x", Err: &APIError{StatusCode: 400}},
		} {
			calls := 0
			_, err := retryWithBackoff(ctx, fastRetry(5), func() (int, error) {
				calls++
				return 0, perm
			})
			assert.Error(t, err)
			assert.Equal(t, 1, calls, "error %v", perm)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		_, err := retryWithBackoff(cctx, fastRetry(5), func() (int, error) {
			calls++
			cancel()
			return 0, errors.New("transient")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts still calls once", func(t *testing.T) {
		calls := 0
		_, _ = retryWithBackoff(ctx, RetryConfig{}, func() (int, error) {
			calls++
			return 0, errors.New("x")
		})
		assert.Equal(t, 1, calls)
	})
}

// mockEmbedder is a testify mock of Embedder
type mockEmbedder struct {
	mock.Mock
	mu sync.Mutex
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, req)
	emb, _ := args.Get(0).(*Embedding)
	return emb, args.Error(1)
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*BatchEmbeddingResponse)
	return resp, args.Error(1)
}

func (m *mockEmbedder) Dimension() int   { return 3 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	transient := &EmbeddingError{Provider: "mock", Err: &APIError{StatusCode: 500}}

	m := &mockEmbedder{}
	m.On("GenerateEmbedding", ctx, EmbeddingRequest{Text: "flaky"}).Return(nil, transient).Twice()
	m.On("GenerateEmbedding", ctx, EmbeddingRequest{Text: "flaky"}).Return(&Embedding{Vector: []float32{1, 0, 0}}, nil).Once()
	m.On("GenerateBatch", ctx, BatchEmbeddingRequest{Texts: []string{"a"}}).Return(nil, transient)

	e := WithRetry(m, fastRetry(3))

	emb, err := e.GenerateEmbedding(ctx, EmbeddingRequest{Text: "flaky"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, emb.Vector)

	_, err = e.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a"}})
	assert.ErrorIs(t, err, ErrProviderFailed)

	assert.Equal(t, "mock", e.Provider())
	assert.Equal(t, 3, e.Dimension())
	m.AssertNumberOfCalls(t, "GenerateEmbedding", 3)
	m.AssertNumberOfCalls(t, "GenerateBatch", 3)
}
