package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/shepherd/modules/contacts"
	"github.com/iota-uz/shepherd/modules/contacts/presentation/controllers"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/database"
	"github.com/iota-uz/shepherd/pkg/middleware"
	"github.com/iota-uz/shepherd/pkg/server"
)

type apiEnv struct {
	t       *testing.T
	handler http.Handler
	owner   uuid.UUID
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := application.New(&application.ApplicationOptions{DB: db, Logger: logger})
	app.RegisterMiddleware(middleware.ProvideDB(db))
	require.NoError(t, application.LoadModules(app, contacts.NewModule(&contacts.ModuleOptions{
		HTTP:        controllers.Options{UploadsPath: t.TempDir(), PageSize: 10},
		SessionTTL:  time.Hour,
		PreviewRows: 2,
		TagCacheTTL: time.Minute,
	})))

	srv := server.NewHTTPServer(app, http.NotFoundHandler(), http.NotFoundHandler())
	return &apiEnv{t: t, handler: srv.Router(), owner: uuid.New()}
}

func (e *apiEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", e.owner.String())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) upload(filename, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/contacts/api/import/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner-ID", e.owner.String())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestContactAPI_CreateAndDuplicates(t *testing.T) {
	env := newAPIEnv(t)
	ann := map[string]any{"first_name": "Ann", "last_name": "Lee", "email": "ann@x.com", "tags": "donor"}

	rec := env.do(http.MethodPost, "/contacts/api/contacts", ann)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "US", created["country"])

	rec = env.do(http.MethodPost, "/contacts/api/contacts", map[string]any{"first_name": "ANN", "last_name": "lee"})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "CONTACT_DUPLICATE", body["code"])
	assert.Len(t, body["matches"], 1)

	rec = env.do(http.MethodPost, "/contacts/api/contacts?force=true", map[string]any{"first_name": "ANN", "last_name": "lee"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/contacts/api/contacts", map[string]any{"first_name": "Solo"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "LastName is required", decode(t, rec)["message"])

	rec = env.do(http.MethodGet, "/contacts/api/contacts?tag=donor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = env.do(http.MethodGet, "/contacts/api/contacts/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"donor"}, decode(t, rec)["tags"])

	rec = env.do(http.MethodGet, "/contacts/api/contacts/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONTACT_NOT_FOUND", decode(t, rec)["code"])

	id := created["id"].(string)
	rec = env.do(http.MethodPost, "/contacts/api/contacts/"+id+"/donations", map[string]any{"amount": "25.50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(http.MethodPost, "/contacts/api/contacts/"+id+"/outreach", map[string]any{"channel": "Email", "summary": "Thanks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(http.MethodPost, "/contacts/api/contacts/"+id+"/outreach", map[string]any{"channel": "pigeon"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(http.MethodPost, "/contacts/api/contacts/"+id+"/outreach/draft", map[string]any{"purpose": "thank you"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DRAFTING_DISABLED", decode(t, rec)["code"])

	rec = env.do(http.MethodDelete, "/contacts/api/contacts/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestContactAPI_RequiresOwner(t *testing.T) {
	env := newAPIEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/contacts/api/contacts", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactAPI_Export(t *testing.T) {
	env := newAPIEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/contacts/api/contacts", map[string]any{"first_name": "Ann", "last_name": "Lee"}).Code)

	rec := env.do(http.MethodGet, "/contacts/api/contacts/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contacts-")
	assert.NotZero(t, rec.Body.Len())
}

const importCSV = "Full Name,E-mail,Phone\n" +
	"Ann Lee,ann@x.com,\n" +
	"Bob Ray,,(555) 123-4567\n" +
	"Ann Lee,ann@x.com,\n" +
	"Cher,,\n"

func TestImportAPI_Flow(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.upload("people.csv", importCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode(t, rec)
	assert.Equal(t, ".csv", preview["ext"])
	assert.EqualValues(t, 4, preview["total_rows"])
	assert.Len(t, preview["preview_rows"], 2)
	mapping := preview["mapping"].(map[string]any)
	assert.Equal(t, "full_name", mapping["Full Name"])
	assert.Equal(t, "email", mapping["E-mail"])

	rec = env.do(http.MethodPost, "/contacts/api/import/execute", map[string]any{
		"upload_id": preview["upload_id"],
		"mapping":   mapping,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.EqualValues(t, 2, res["imported"])
	assert.EqualValues(t, 1, res["skipped"])
	assert.Equal(t, []any{"Row 5: missing required field last_name"}, res["errors"])
	sessionID := res["session_id"].(string)

	rec = env.do(http.MethodPost, "/contacts/api/import/execute", map[string]any{"upload_id": preview["upload_id"]})
	assert.Equal(t, http.StatusNotFound, rec.Code, "uploads are removed after a successful execute")

	rec = env.do(http.MethodGet, "/contacts/api/import/sessions/"+sessionID+"?page=1&size=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode(t, rec)
	assert.Equal(t, false, session["complete"])
	page := session["page"].(map[string]any)
	assert.EqualValues(t, 1, page["total"])

	rec = env.do(http.MethodPost, "/contacts/api/import/sessions/"+sessionID+"/resolve", map[string]any{"index": 0, "action": "bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(http.MethodPost, "/contacts/api/import/sessions/"+sessionID+"/resolve", map[string]any{"index": 3, "action": "imported"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ENTRY_NOT_FOUND", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/contacts/api/import/sessions/"+sessionID+"/resolve", map[string]any{"index": 0, "action": "imported"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decode(t, rec)
	assert.Equal(t, true, resolved["complete"])

	rec = env.do(http.MethodPost, "/contacts/api/import/sessions/"+sessionID+"/resolve", map[string]any{"index": 0, "action": "skipped"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "IMPORT_ALREADY_RESOLVED", decode(t, rec)["code"])

	rec = env.do(http.MethodGet, "/contacts/api/contacts", nil)
	assert.EqualValues(t, 3, decode(t, rec)["total"])

	other := &apiEnv{t: t, handler: env.handler, owner: uuid.New()}
	rec = other.do(http.MethodGet, "/contacts/api/import/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode(t, rec)["code"])

	rec = env.do(http.MethodDelete, "/contacts/api/import/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestImportAPI_RejectsUnsupportedFormat(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.upload("people.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "IMPORT_UNSUPPORTED_FORMAT", decode(t, rec)["code"])
}

func TestImportAPI_InvalidMapping(t *testing.T) {
	env := newAPIEnv(t)
	preview := decode(t, env.upload("people.csv", importCSV))
	rec := env.do(http.MethodPost, "/contacts/api/import/execute", map[string]any{
		"upload_id": preview["upload_id"],
		"mapping":   map[string]string{"Full Name": "nickname"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "IMPORT_INVALID_MAPPING", decode(t, rec)["code"])
}

func TestImportAPI_Fields(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(http.MethodGet, "/contacts/api/import/fields", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fields := decode(t, rec)["fields"].([]any)
	assert.NotEmpty(t, fields)
}

func TestDuplicatesAPI_ScanAndResolve(t *testing.T) {
	env := newAPIEnv(t)
	for _, body := range []map[string]any{
		{"first_name": "Ann", "last_name": "Lee", "email": "ann@x.com"},
		{"first_name": "Annie", "last_name": "Lee", "email": "ANN@x.com"},
	} {
		require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/contacts/api/contacts?force=true", body).Code)
	}

	rec := env.do(http.MethodPost, "/contacts/api/duplicates/scan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scan := decode(t, rec)
	require.Len(t, scan["pairs"], 1)
	reviewID := scan["session_id"].(string)

	rec = env.do(http.MethodPost, "/contacts/api/duplicates/reviews/"+reviewID+"/resolve", map[string]any{"index": 0, "action": "keep_a"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/contacts/api/duplicates/reviews/"+reviewID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	review := decode(t, rec)
	assert.Equal(t, true, review["complete"])
	assert.Len(t, review["deleted"], 1)

	rec = env.do(http.MethodGet, "/contacts/api/contacts", nil)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = env.do(http.MethodGet, "/contacts/api/duplicates/reason-fields", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "email")
}
