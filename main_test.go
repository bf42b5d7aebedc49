package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorsMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("wildcard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		corsMiddleware(next, []string{"*"}).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://b.test")
		rec := httptest.NewRecorder()
		corsMiddleware(next, []string{"http://a.test", " http://b.test"}).ServeHTTP(rec, req)
		assert.Equal(t, "http://b.test", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://evil.test")
		rec := httptest.NewRecorder()
		corsMiddleware(next, []string{"http://a.test"}).ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		corsMiddleware(next, []string{"*"}).ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	_, err = newLogger("chatty")
	assert.Error(t, err)
}

func TestExecuteClosesMediumOnFailure(t *testing.T) {
	dir := t.TempDir()
	a := &app{}
	err := execute(context.Background(), a, []string{
		"seed", "--backend", "sqlite", "--data-dir", dir, "--log-level", "error",
		filepath.Join(dir, "missing.yaml"),
	})
	require.Error(t, err)
	require.NotNil(t, a.medium)

	// The database handle was closed even though the command failed.
	_, err = a.medium.Keys()
	assert.Error(t, err)
}

func TestCloseOnUnopenedApp(t *testing.T) {
	assert.NotPanics(t, func() { (&app{}).close() })
}
