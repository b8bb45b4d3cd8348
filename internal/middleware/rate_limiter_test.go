package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(limiter *PushRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/push", limiter.RateLimit(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	router := newLimitedRouter(NewPushRateLimiter(1, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/push", nil))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("requests within burst got %v, want 200s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("request beyond burst got %d, want 429", codes[2])
	}
}

func TestRateLimitClampsNonPositiveConfig(t *testing.T) {
	tests := []struct {
		name      string
		perMinute int
		burst     int
	}{
		{"zero rate", 0, 5},
		{"negative rate", -10, 5},
		{"zero burst", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLimitedRouter(NewPushRateLimiter(tt.perMinute, tt.burst))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/push", nil))
			if w.Code != http.StatusOK {
				t.Errorf("first request got %d, want 200", w.Code)
			}
		})
	}
}
