package xoauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTokenServer 返回一个计数的认证端点。
// handler 为 nil 时返回固定的有效凭据。
func newTokenServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "id", r.PostForm.Get("client_id"))
			assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1",
				"token_type":   "bearer",
				"expires_in":   86400,
			})
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestManager(t *testing.T, srv *httptest.Server, opts ...Option) *Manager {
	t.Helper()
	all := append([]Option{
		WithTokenURL("us", srv.URL),
		WithTokenURL("eu", srv.URL),
		WithLogger(nil),
	}, opts...)
	m, err := New("id", "secret", all...)
	require.NoError(t, err)
	return m
}

func TestNew_MissingCredentials_ReturnsError(t *testing.T) {
	_, err := New("", "secret")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New("id", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestToken_UnknownRegion_ReturnsError(t *testing.T) {
	srv, _ := newTokenServer(t, nil)
	m := newTestManager(t, srv)

	_, err := m.Token(context.Background(), "moon")
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestToken_AcquiresOnceThenServesFromCache(t *testing.T) {
	srv, calls := newTokenServer(t, nil)
	m := newTestManager(t, srv)
	ctx := context.Background()

	tok, err := m.Token(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = m.Token(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	assert.Equal(t, int32(1), calls.Load())
}

func TestToken_RegionNormalizedToLowercase(t *testing.T) {
	srv, calls := newTokenServer(t, nil)
	m := newTestManager(t, srv)
	ctx := context.Background()

	_, err := m.Token(ctx, "US")
	require.NoError(t, err)
	_, err = m.Token(ctx, "us")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestToken_RegionsAcquireIndependently(t *testing.T) {
	srv, calls := newTokenServer(t, nil)
	m := newTestManager(t, srv)
	ctx := context.Background()

	_, err := m.Token(ctx, "us")
	require.NoError(t, err)
	_, err = m.Token(ctx, "eu")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestToken_ConcurrentCallers_SingleAcquisition(t *testing.T) {
	srv, calls := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		// 放大竞争窗口
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"token_type":   "bearer",
			"expires_in":   86400,
		})
	})
	m := newTestManager(t, srv)

	const workers = 16
	var wg sync.WaitGroup
	tokens := make([]string, workers)
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = m.Token(context.Background(), "us")
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-1", tokens[i])
	}
	// 双重检查锁保证只认证一次
	assert.Equal(t, int32(1), calls.Load())
}

func TestToken_StaleCredential_Reacquires(t *testing.T) {
	var issued atomic.Int32
	srv, calls := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		n := issued.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": map[int32]string{1: "tok-1", 2: "tok-2"}[n],
			"token_type":   "bearer",
			// 剩余有效期 30s，小于 60s 安全缓冲，下一次请求即视为陈旧
			"expires_in": 30,
		})
	})
	m := newTestManager(t, srv)
	ctx := context.Background()

	tok, err := m.Token(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = m.Token(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestToken_Non2xxStatus_ReturnsErrAcquireFailed(t *testing.T) {
	srv, _ := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	m := newTestManager(t, srv)

	_, err := m.Token(context.Background(), "us")
	assert.ErrorIs(t, err, ErrAcquireFailed)
}

func TestToken_MalformedBody_ReturnsErrAcquireFailed(t *testing.T) {
	srv, _ := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	m := newTestManager(t, srv)

	_, err := m.Token(context.Background(), "us")
	assert.ErrorIs(t, err, ErrAcquireFailed)
}

func TestToken_EmptyAccessToken_ReturnsErrAcquireFailed(t *testing.T) {
	srv, _ := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "",
			"expires_in":   86400,
		})
	})
	m := newTestManager(t, srv)

	_, err := m.Token(context.Background(), "us")
	assert.ErrorIs(t, err, ErrAcquireFailed)
}

func TestToken_FailureNotCached_NextCallRetries(t *testing.T) {
	var failFirst atomic.Bool
	failFirst.Store(true)
	srv, calls := newTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if failFirst.Swap(false) {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   86400,
		})
	})
	m := newTestManager(t, srv)
	ctx := context.Background()

	_, err := m.Token(ctx, "us")
	require.ErrorIs(t, err, ErrAcquireFailed)

	tok, err := m.Token(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidate_ForcesReacquisition(t *testing.T) {
	srv, calls := newTokenServer(t, nil)
	m := newTestManager(t, srv)
	ctx := context.Background()

	_, err := m.Token(ctx, "us")
	require.NoError(t, err)

	m.Invalidate("US")

	_, err = m.Token(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefresh_DropsAndReacquires(t *testing.T) {
	srv, calls := newTokenServer(t, nil)
	m := newTestManager(t, srv)
	ctx := context.Background()

	_, err := m.Token(ctx, "us")
	require.NoError(t, err)

	tok, err := m.Refresh(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(2), calls.Load())
}
