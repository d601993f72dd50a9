package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"instantride/internal/logger"
	"instantride/internal/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdminRouter(secret string) *gin.Engine {
	r := gin.New()
	r.GET("/admin", AdminAuth(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": AdminSubject(c)})
	})
	return r
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()
	const secret = "s3cret"

	valid, err := IssueAdminToken(secret, "ops@instantride", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, _ := IssueAdminToken(secret, "ops@instantride", -time.Minute)
	wrongKey, _ := IssueAdminToken("other", "ops@instantride", time.Hour)
	notAdmin, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdminClaims{
		Role:             "rider",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(secret))

	tests := []struct {
		name     string
		header   string
		expected int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"not admin", "Bearer " + notAdmin, http.StatusUnauthorized},
	}
	router := newAdminRouter(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestAdminAuth_OpenWithoutSecret(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	newAdminRouter("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	t.Parallel()
	var calls int32
	r := gin.New()
	r.Use(IdempotencyMiddleware(redis.NewLocalResponseStore(), logger.NewNop()))
	r.POST("/rides", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusCreated, gin.H{"call": n})
	})
	r.POST("/other", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.Status(http.StatusNoContent)
	})

	send := func(path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(idempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send("/rides", "k1")
	second := send("/rides", "k1")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("codes = %d, %d", first.Code, second.Code)
	}
	if second.Body.String() != first.Body.String() || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("second response should replay the first: %q vs %q", second.Body.String(), first.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}

	send("/other", "k1")
	send("/rides", "")
	send("/rides", "")
	if calls != 4 {
		t.Errorf("other routes and keyless requests must run, got %d calls", calls)
	}
}

func TestIdempotencyMiddleware_DoesNotReplayServerErrors(t *testing.T) {
	t.Parallel()
	var calls int32
	r := gin.New()
	r.Use(IdempotencyMiddleware(redis.NewLocalResponseStore(), logger.NewNop()))
	r.POST("/pay", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway down"})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		req.Header.Set(idempotencyHeader, "k1")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Errorf("5xx responses should be retried, got %d calls", calls)
	}
}

func TestIdempotencyMiddleware_RejectsConcurrentDuplicate(t *testing.T) {
	t.Parallel()
	var calls int32
	entered := make(chan struct{})
	proceed := make(chan struct{})
	r := gin.New()
	r.Use(IdempotencyMiddleware(redis.NewLocalResponseStore(), logger.NewNop()))
	r.POST("/rides", func(c *gin.Context) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-proceed
		}
		c.JSON(http.StatusCreated, gin.H{"id": "r1"})
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/rides", nil)
		req.Header.Set(idempotencyHeader, "checkout-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() { firstDone <- send() }()
	<-entered

	if dup := send(); dup.Code != http.StatusConflict {
		t.Errorf("duplicate while in flight: expected 409, got %d", dup.Code)
	}

	close(proceed)
	if first := <-firstDone; first.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", first.Code)
	}

	retry := send()
	if retry.Code != http.StatusCreated || retry.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("retry after completion should replay, got %d", retry.Code)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(CORSMiddleware())
	r.POST("/rides", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/rides", nil))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("unexpected preflight response %d %v", w.Code, w.Header())
	}
}
