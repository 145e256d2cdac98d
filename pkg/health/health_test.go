package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dd0wney/pgfleet/pkg/cluster"
	"github.com/dd0wney/pgfleet/pkg/metrics"
)

func TestHealthCheckerWorstStatusWins(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("ok", func() Check {
		return Check{Name: "ok", Status: StatusHealthy}
	})
	hc.RegisterCheck("meh", func() Check {
		return Check{Name: "meh", Status: StatusDegraded}
	})

	response := hc.Check()
	if response.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", response.Status)
	}

	hc.RegisterCheck("bad", func() Check {
		return Check{Name: "bad", Status: StatusUnhealthy}
	})
	response = hc.Check()
	if response.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", response.Status)
	}
	if len(response.Checks) != 3 {
		t.Errorf("expected 3 checks, got %d", len(response.Checks))
	}
}

func TestHealthCheckerEmptyIsHealthy(t *testing.T) {
	hc := NewHealthChecker()
	if got := hc.Check().Status; got != StatusHealthy {
		t.Errorf("expected healthy with no checks, got %s", got)
	}
}

func TestHTTPHandlerStatusCodes(t *testing.T) {
	cases := []struct {
		status Status
		code   int
	}{
		{StatusHealthy, http.StatusOK},
		{StatusDegraded, http.StatusOK},
		{StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		hc := NewHealthChecker()
		status := c.status
		hc.RegisterCheck("x", func() Check {
			return Check{Name: "x", Status: status}
		})

		rec := httptest.NewRecorder()
		hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != c.code {
			t.Errorf("status %s: expected %d, got %d", c.status, c.code, rec.Code)
		}
		var response Response
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if response.Status != c.status {
			t.Errorf("expected body status %s, got %s", c.status, response.Status)
		}
	}
}

func TestReadinessHandlerIsBinary(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("x", func() Check {
		return Check{Name: "x", Status: StatusDegraded}
	})

	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded must not be ready, got %d", rec.Code)
	}
}

type fakeChecker struct {
	report *cluster.Report
	err    error
}

func (f *fakeChecker) ClusterStatus(ctx context.Context) (*cluster.Report, error) {
	return f.report, f.err
}

func TestClusterCheckMapsVerdicts(t *testing.T) {
	cases := []struct {
		verdict cluster.Verdict
		want    Status
	}{
		{cluster.Healthy, StatusHealthy},
		{cluster.Degraded, StatusDegraded},
		{cluster.Down, StatusUnhealthy},
	}
	for _, c := range cases {
		check := ClusterCheck(&fakeChecker{report: &cluster.Report{Status: c.verdict}})()
		if check.Status != c.want {
			t.Errorf("verdict %s: expected %s, got %s", c.verdict, c.want, check.Status)
		}
	}
}

func TestReadyCheckAcceptsDegraded(t *testing.T) {
	check := ReadyCheck(&fakeChecker{report: &cluster.Report{Status: cluster.Degraded}})()
	if check.Status != StatusHealthy {
		t.Errorf("a degraded cluster still serves, got %s", check.Status)
	}

	down := ReadyCheck(&fakeChecker{report: &cluster.Report{Status: cluster.Down}})()
	if down.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy for a down cluster, got %s", down.Status)
	}
}

func TestClusterCheckQueryFailure(t *testing.T) {
	check := ClusterCheck(&fakeChecker{err: errors.New("topology unavailable")})()
	if check.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", check.Status)
	}
	if check.Message == "" {
		t.Error("expected the failure message to surface")
	}
}

func TestStoreCheck(t *testing.T) {
	ok := StoreCheck(func(ctx context.Context) error { return nil })()
	if ok.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", ok.Status)
	}

	bad := StoreCheck(func(ctx context.Context) error { return errors.New("refused") })()
	if bad.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", bad.Status)
	}
}

func TestMuxRoutes(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterLivenessCheck("process", ProcessCheck())
	mux := hc.Mux(metrics.NewRegistry())

	for _, path := range []string{"/healthz", "/readyz", "/livez", "/metrics"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code == http.StatusNotFound {
			t.Errorf("route %s not mounted", path)
		}
	}
}
