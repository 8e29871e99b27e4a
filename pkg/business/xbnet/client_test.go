package xbnet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	all := append([]Option{WithBaseURL("us", srv.URL), WithLogger(nil)}, opts...)
	return New(all...), &calls
}

func TestGet_Success_ReturnsBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":19019}`))
	})

	body, err := client.Get(context.Background(), "us", "/data/wow/item/19019", "static-us", "tok")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":19019}`), body)
}

func TestGet_SendsAuthAndNamespaceHeaders(t *testing.T) {
	var gotAuth, gotNamespace, gotRequestID string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotNamespace = r.Header.Get("Battlenet-Namespace")
		gotRequestID = r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Get(context.Background(), "us", "/data/wow/item/19019", "static-us", "tok")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "static-us", gotNamespace)
	// 关联标识必须是合法 UUID
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err)
}

func TestGet_RequestIDsUniquePerRequest(t *testing.T) {
	ids := make(map[string]struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids[r.Header.Get("X-Request-Id")] = struct{}{}
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	for range 3 {
		_, err := client.Get(ctx, "us", "/p", "static-us", "tok")
		require.NoError(t, err)
	}
	assert.Len(t, ids, 3)
}

func TestGet_PathWithoutLeadingSlash_Normalized(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Get(context.Background(), "us", "data/wow/item/1", "static-us", "tok")
	require.NoError(t, err)
	assert.Equal(t, "/data/wow/item/1", gotPath)
}

func TestGet_UnknownRegion_ReturnsError(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Get(context.Background(), "moon", "/p", "static-moon", "tok")
	assert.ErrorIs(t, err, ErrUnknownRegion)
	assert.Zero(t, calls.Load())
}

func TestGet_EmptyToken_ReturnsError(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Get(context.Background(), "us", "/p", "static-us", "")
	assert.ErrorIs(t, err, ErrEmptyToken)
	assert.Zero(t, calls.Load())
}

func TestGet_StatusBranching(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "404 is a valid absent signal", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "429 maps to source rate limited", status: http.StatusTooManyRequests, wantErr: ErrSourceRateLimited},
		{name: "500 maps to transient", status: http.StatusInternalServerError, wantErr: ErrTransient},
		{name: "503 maps to transient", status: http.StatusServiceUnavailable, wantErr: ErrTransient},
		{name: "403 maps to upstream", status: http.StatusForbidden, wantErr: ErrUpstream},
		{name: "400 maps to upstream", status: http.StatusBadRequest, wantErr: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Get(context.Background(), "us", "/p", "static-us", "tok")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGet_TransportError_MapsToTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // 立即关闭，制造连接失败

	client := New(WithBaseURL("us", srv.URL), WithLogger(nil), WithBreaker(false))
	_, err := client.Get(context.Background(), "us", "/p", "static-us", "tok")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestGet_OversizedResponse_ReturnsErrResponseTooLarge(t *testing.T) {
	oversized := make([]byte, maxResponseSize+1)
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(oversized)
	})

	_, err := client.Get(context.Background(), "us", "/p", "dynamic-us", "tok")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

// =============================================================================
// 熔断器
// =============================================================================

func TestGet_BreakerTripsOnConsecutiveTransientFailures(t *testing.T) {
	client, calls := newTestClient(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		WithBreakerThreshold(3),
	)
	ctx := context.Background()

	for range 3 {
		_, err := client.Get(ctx, "us", "/p", "static-us", "tok")
		require.ErrorIs(t, err, ErrTransient)
	}
	require.Equal(t, int32(3), calls.Load())

	// 熔断后快速失败，不再触达上游
	_, err := client.Get(ctx, "us", "/p", "static-us", "tok")
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_NotFoundDoesNotTripBreaker(t *testing.T) {
	client, calls := newTestClient(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		WithBreakerThreshold(2),
	)
	ctx := context.Background()

	// 404 是正常的业务响应，连续出现也不应熔断
	for range 5 {
		_, err := client.Get(ctx, "us", "/p", "profile-us", "tok")
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestGet_BreakerDisabled_NeverTrips(t *testing.T) {
	client, calls := newTestClient(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		WithBreaker(false),
	)
	ctx := context.Background()

	for range 8 {
		_, err := client.Get(ctx, "us", "/p", "static-us", "tok")
		require.ErrorIs(t, err, ErrTransient)
	}
	assert.Equal(t, int32(8), calls.Load())
}
