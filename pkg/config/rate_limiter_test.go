package config

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func newTestRouter(rl *RateLimiter, setup ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setup...)
	router.Use(rl.RateLimitMiddleware())

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	router.GET("/healthz", ok)
	router.POST("/todos", ok)
	router.DELETE("/todos/:id", ok)

	return router
}

func doRequest(router *gin.Engine, method, path, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	router.ServeHTTP(w, req)

	return w
}

func TestNewRateLimiter(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(zap.NewNop(), NewAppMetrics(prometheus.NewRegistry()))

	Expect(rl).ToNot(BeNil())
	Expect(rl.cache).ToNot(BeNil())
	Expect(rl.config).To(HaveKey("default"))
	Expect(rl.GetStats()).To(HaveKeyWithValue("active_entries", 0))
}

func TestRateLimitMiddleware_AllowedRequests(t *testing.T) {
	RegisterTestingT(t)
	router := newTestRouter(NewRateLimiter(zap.NewNop(), nil))

	for i := 0; i < 5; i++ {
		w := doRequest(router, "GET", "/healthz", "10.0.0.1")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("60"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(59 - i)))
	}
}

func TestRateLimitMiddleware_ExceedLimit(t *testing.T) {
	RegisterTestingT(t)
	router := newTestRouter(NewRateLimiter(zap.NewNop(), NewAppMetrics(prometheus.NewRegistry())))

	for i := 0; i < 12; i++ {
		w := doRequest(router, "DELETE", "/todos/"+strconv.Itoa(i), "10.0.0.2")

		if i < 10 {
			Expect(w.Code).To(Equal(http.StatusOK))
		} else {
			Expect(w.Code).To(Equal(http.StatusTooManyRequests))
			Expect(w.Body.String()).To(ContainSubstring("Rate limit exceeded"))
		}
	}
}

func TestRateLimitMiddleware_SeparateCallers(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(zap.NewNop(), nil)
	rl.SetConfig("POST /todos", RateLimitEndpointConfig{Requests: 1, Window: time.Minute})
	router := newTestRouter(rl)

	Expect(doRequest(router, "POST", "/todos", "10.0.0.3").Code).To(Equal(http.StatusOK))
	Expect(doRequest(router, "POST", "/todos", "10.0.0.3").Code).To(Equal(http.StatusTooManyRequests))
	Expect(doRequest(router, "POST", "/todos", "10.0.0.4").Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_SubjectKey(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(zap.NewNop(), nil)
	rl.SetConfig("POST /todos", RateLimitEndpointConfig{Requests: 1, Window: time.Minute})

	subject := "alice"
	router := newTestRouter(rl, func(c *gin.Context) {
		c.Set(ContextSubjectKey, subject)
		c.Next()
	})

	Expect(doRequest(router, "POST", "/todos", "10.0.0.5").Code).To(Equal(http.StatusOK))
	Expect(doRequest(router, "POST", "/todos", "10.0.0.6").Code).To(Equal(http.StatusTooManyRequests))

	subject = "bob"
	Expect(doRequest(router, "POST", "/todos", "10.0.0.5").Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_WindowResets(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(zap.NewNop(), nil)
	rl.SetConfig("POST /todos", RateLimitEndpointConfig{Requests: 1, Window: 50 * time.Millisecond})
	router := newTestRouter(rl)

	Expect(doRequest(router, "POST", "/todos", "10.0.0.7").Code).To(Equal(http.StatusOK))
	Expect(doRequest(router, "POST", "/todos", "10.0.0.7").Code).To(Equal(http.StatusTooManyRequests))

	time.Sleep(80 * time.Millisecond)

	Expect(doRequest(router, "POST", "/todos", "10.0.0.7").Code).To(Equal(http.StatusOK))
}
