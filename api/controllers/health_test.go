package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name string
		deps map[string]Pinger
		want int
	}{
		{"all up", map[string]Pinger{"db": ok, "redis": ok}, http.StatusOK},
		{"redis down", map[string]Pinger{"db": ok, "redis": down}, http.StatusServiceUnavailable},
		{"nil dependency skipped", map[string]Pinger{"db": ok, "gcs": nil}, http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		HealthReady(cfg, tt.deps, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, rec.Code)
		}
	}
}

func TestHealthLiveSetsEnvHeader(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK || rec.Header().Get("X-Mahuwo-Env") != "dev" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("X-Mahuwo-Env"))
	}
}
