package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castellet/agentgate/pkg/api"
)

func TestServerEndToEnd(t *testing.T) {
	service := &mockService{resp: &api.Response{ID: "1"}}
	s := NewServer(service, WithAddr("127.0.0.1:0"), WithShutdownTimeout(time.Second))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp := postCall(t, srv, api.Call{ID: "1", Method: "echo"}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", health.StatusCode)
	}
}

func TestServerMountExtraRoute(t *testing.T) {
	s := NewServer(&mockService{resp: &api.Response{ID: "1"}})
	s.Mount("GET /extra", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/extra")
	if err != nil {
		t.Fatalf("GET /extra: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	s := NewServer(&mockService{resp: &api.Response{ID: "1"}},
		WithAddr("127.0.0.1:0"), WithShutdownTimeout(time.Second))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
