package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/configuration"
	"github.com/iota-uz/shepherd/pkg/database"
	"github.com/iota-uz/shepherd/pkg/httpapi"
)

func TestDefault_UnknownRouteReturnsJSON(t *testing.T) {
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	conf := &configuration.Configuration{
		RateLimit:        configuration.RateLimitOptions{Enabled: true, GlobalRPS: 100, Storage: "memory"},
		Prometheus:       configuration.PrometheusOptions{Enabled: true, Path: "/debug/prometheus"},
		GoAppEnvironment: "development",
		RequestIDHeader:  "X-Request-ID",
		RealIPHeader:     "X-Real-IP",
	}
	app := application.New(&application.ApplicationOptions{DB: db, Logger: logger})

	srv, err := Default(&DefaultOptions{Logger: logger, Configuration: conf, Application: app, DB: db})
	require.NoError(t, err)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "NOT_FOUND", env.Code)
	require.Equal(t, "/nope", env.Meta["path"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
