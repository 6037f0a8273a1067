package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type pingRoute struct{}

func (pingRoute) Register(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}

func TestStopCausesStartToReturnServerClosed(t *testing.T) {
	srv := NewServer(slog.New(slog.DiscardHandler), "127.0.0.1:0", "secret")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("Start() returned %v after graceful stop, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestSkipperExemptsPublicRoutes(t *testing.T) {
	srv := NewServer(slog.New(slog.DiscardHandler), "", "secret", pingRoute{})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/ping without token status = %d, want 200", rec.Code)
	}
}
