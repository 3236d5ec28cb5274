package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/health-info/:topic", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/health-info/:topic", "200"))
	for _, topic := range []string{"fever", "cough"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health-info/"+topic, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/health-info/:topic", "200"))
	if after-before != 2 {
		t.Errorf("expected 2 requests on one series, got %v", after-before)
	}

	unmatched := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")); got-unmatched != 1 {
		t.Errorf("expected unmatched counter to grow by 1, got %v", got-unmatched)
	}
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(transcriptionsTotal.WithLabelValues("fallback", "recognized"))
	RecordTranscription("fallback", "recognized")
	if got := testutil.ToFloat64(transcriptionsTotal.WithLabelValues("fallback", "recognized")); got-before != 1 {
		t.Errorf("transcriptions counter grew by %v", got-before)
	}

	before = testutil.ToFloat64(symptomAnalysesTotal.WithLabelValues("fever", "high"))
	RecordAnalysis("fever", "high")
	if got := testutil.ToFloat64(symptomAnalysesTotal.WithLabelValues("fever", "high")); got-before != 1 {
		t.Errorf("analyses counter grew by %v", got-before)
	}

	before = testutil.ToFloat64(rateLimitedTotal)
	RecordRateLimited()
	if got := testutil.ToFloat64(rateLimitedTotal); got-before != 1 {
		t.Errorf("rate limited counter grew by %v", got-before)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordAnalysis("general", "low")
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "symptom_analyses_total") {
		t.Error("exposition is missing symptom_analyses_total")
	}
}
