package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersRecord(t *testing.T) {
	m := New()
	m.Claimed("on_time")
	m.Claimed("on_time")
	m.Duplicate()
	m.Delivery("email", "failed")
	m.Missed(3)
	m.Missed(0)
	m.InstancesGenerated(5)
	m.ObserveJob("tick", 10*time.Millisecond, errors.New("boom"))
	m.ObserveJob("tick", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(m.RemindersClaimed.WithLabelValues("on_time")); got != 2 {
		t.Fatalf("claimed = %v", got)
	}
	if got := testutil.ToFloat64(m.RemindersDuplicate); got != 1 {
		t.Fatalf("duplicate = %v", got)
	}
	if got := testutil.ToFloat64(m.ChannelDeliveries.WithLabelValues("email", "failed")); got != 1 {
		t.Fatalf("deliveries = %v", got)
	}
	if got := testutil.ToFloat64(m.TasksMissed); got != 3 {
		t.Fatalf("missed = %v", got)
	}
	if got := testutil.ToFloat64(m.InstancesCreated); got != 5 {
		t.Fatalf("instances = %v", got)
	}
	if got := testutil.ToFloat64(m.JobFailures.WithLabelValues("tick")); got != 1 {
		t.Fatalf("job failures = %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Claimed("overdue")
	m.Duplicate()
	m.Delivery("sms", "sent")
	m.Missed(1)
	m.InstancesGenerated(1)
	m.ObserveJob("rollover", time.Second, nil)
}

func TestRouterServesMetricsAndHealth(t *testing.T) {
	m := New()
	m.Claimed("pre_start")

	healthy := true
	router := NewRouter(m, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "remindd_reminders_claimed_total") {
		t.Fatalf("unexpected /metrics response: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("unhealthy healthz = %d %s", rec.Code, rec.Body.String())
	}
}
