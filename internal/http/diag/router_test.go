package diag_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"courier-driver-agent/internal/http/diag"
	"courier-driver-agent/internal/logx"
)

func TestNewRouter_Routes(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := diag.NewHandlers(logx.Nop(), nil, nil, nil)
	r := diag.NewRouter(h, logx.Nop(), reg, diag.PprofConfig{})

	srv := httptest.NewServer(r)
	defer srv.Close()

	cases := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/status", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/orders/available", http.StatusServiceUnavailable},
		{"/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("GET %s: status %d, want %d", tc.path, resp.StatusCode, tc.want)
		}
	}
}

func TestNewRouter_PprofLoopback(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := diag.NewHandlers(logx.Nop(), nil, nil, nil)
	r := diag.NewRouter(h, logx.Nop(), reg, diag.PprofConfig{})

	req := httptest.NewRequest(http.MethodGet, "http://example/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("loopback pprof index: status %d, want %d", rr.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "http://example/debug/pprof/", nil)
	req.RemoteAddr = "203.0.113.9:40000"
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("remote pprof index: status %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
