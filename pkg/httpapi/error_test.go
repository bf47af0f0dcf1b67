package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestError_CarriesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contacts/api/contacts", nil)
	req.Header.Set(RequestIDHeader, "req-42")

	meta := map[string]string{"field": "email"}
	require.NoError(t, Error(rec, req, http.StatusConflict, "CONTACT_DUPLICATE", "duplicate", meta))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	env := decodeEnvelope(t, rec)
	require.Equal(t, "CONTACT_DUPLICATE", env.Code)
	require.Equal(t, "duplicate", env.Message)
	require.Equal(t, "email", env.Meta["field"])
	require.Equal(t, "req-42", env.Meta["request_id"])
	require.NotContains(t, meta, "request_id")
}

func TestRequestID_PrefersResponseHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set(RequestIDHeader, "from-logger")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "from-client")
	require.Equal(t, "from-logger", RequestID(rec, req))

	rec = httptest.NewRecorder()
	generated := RequestID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, generated, 36)
	require.Equal(t, generated, rec.Header().Get(RequestIDHeader))
}

func TestError_WithoutRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Error(rec, nil, http.StatusTooManyRequests, CodeRateLimited, "too many requests", nil))
	env := decodeEnvelope(t, rec)
	require.Equal(t, CodeRateLimited, env.Code)
	require.NotEmpty(t, env.Meta["request_id"])
}

func TestWriteJSON_NilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusNoContent, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.NoError(t, WriteJSON(nil, http.StatusOK, "x"))
	require.NoError(t, Error(nil, nil, http.StatusOK, CodeInternal, "x", nil))
}
