package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iota-uz/utils/fs"

	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/modules/contacts/services"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/middleware"
)

var errUploadNotFound = errors.New("upload not found")

type executeRequest struct {
	UploadID string           `json:"upload_id"`
	Mapping  importer.Mapping `json:"mapping"`
}

// ImportAPIController drives a file import: upload and preview, execute with a
// confirmed mapping, then review the duplicates held back by the execute step.
type ImportAPIController struct {
	app      application.Application
	imports  *services.ImportService
	opts     Options
	basePath string
}

func NewImportAPIController(app application.Application, opts Options) application.Controller {
	return &ImportAPIController{
		app:      app,
		imports:  app.Service(services.ImportService{}).(*services.ImportService),
		opts:     opts.withDefaults(),
		basePath: "/contacts/api/import",
	}
}

func (c *ImportAPIController) Key() string {
	return c.basePath
}

func (c *ImportAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.ProvideOwner(c.opts.OwnerHeader))

	router.HandleFunc("/fields", c.Fields).Methods(http.MethodGet)
	router.HandleFunc("/preview", c.Preview).Methods(http.MethodPost)
	router.HandleFunc("/execute", c.Execute).Methods(http.MethodPost)
	router.HandleFunc("/sessions/"+uuidPattern, c.Session).Methods(http.MethodGet)
	router.HandleFunc("/sessions/"+uuidPattern, c.Close).Methods(http.MethodDelete)
	router.HandleFunc("/sessions/"+uuidPattern+"/resolve", c.Resolve).Methods(http.MethodPost)
	router.HandleFunc("/sessions/"+uuidPattern+"/resolve-selected", c.ResolveSelected).Methods(http.MethodPost)
	router.HandleFunc("/sessions/"+uuidPattern+"/skip-all", c.SkipAll).Methods(http.MethodPost)
}

func (c *ImportAPIController) uploadDir() string {
	return filepath.Join(c.opts.UploadsPath, "imports")
}

// Fields lists the mapping targets with the header aliases auto-detection recognizes.
func (c *ImportAPIController) Fields(w http.ResponseWriter, r *http.Request) {
	aliases := importer.Aliases()
	out := make([]map[string]any, 0, len(importer.AllFields))
	for _, f := range importer.AllFields {
		item := map[string]any{"field": f, "aliases": aliases[f]}
		if aliases[f] == nil {
			item["aliases"] = []string{}
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": out})
}

// Preview stores the uploaded file and returns its headers, a suggested
// mapping and the first rows. The returned upload_id is passed to Execute.
func (c *ImportAPIController) Preview(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerFrom(w, r); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, c.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(c.opts.MaxUploadSize); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "IMPORT_INVALID_UPLOAD", "expected a multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "IMPORT_INVALID_UPLOAD", "missing file")
		return
	}
	defer file.Close()

	ext := importer.NormalizeExt(filepath.Ext(header.Filename))
	if ext == "" {
		mtype, err := mimetype.DetectReader(file)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ext = importer.NormalizeExt(mtype.Extension())
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if !importer.IsSupported(ext) {
		writeServiceError(w, r, &importer.UnsupportedFormatError{Ext: ext})
		return
	}

	uploadID := uuid.New()
	path, err := c.store(uploadID, ext, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	preview, err := c.imports.Preview(r.Context(), path, ext)
	if err != nil {
		_ = os.Remove(path)
		c.writeImportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upload_id":    uploadID,
		"filename":     header.Filename,
		"ext":          ext,
		"headers":      preview.Headers,
		"mapping":      preview.Mapping,
		"preview_rows": preview.PreviewRows,
		"total_rows":   preview.TotalRows,
	})
}

func (c *ImportAPIController) store(id uuid.UUID, ext string, src io.Reader) (string, error) {
	if err := os.MkdirAll(c.uploadDir(), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(c.uploadDir(), id.String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, dst.Close()
}

// locate finds a previously stored upload by id.
func (c *ImportAPIController) locate(id uuid.UUID) (string, string, error) {
	for _, ext := range []string{importer.ExtCSV, importer.ExtXLSX, importer.ExtXLS} {
		path := filepath.Join(c.uploadDir(), id.String()+ext)
		if fs.FileExists(path) {
			return path, ext, nil
		}
	}
	return "", "", errUploadNotFound
}

func (c *ImportAPIController) Execute(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var req executeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	uploadID, err := uuid.Parse(strings.TrimSpace(req.UploadID))
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "IMPORT_INVALID_UPLOAD", "invalid upload_id")
		return
	}
	path, ext, err := c.locate(uploadID)
	if err != nil {
		writeAPIError(w, r, http.StatusNotFound, "IMPORT_UPLOAD_NOT_FOUND", err.Error())
		return
	}

	res, err := c.imports.Execute(r.Context(), ownerID, path, ext, req.Mapping)
	if err != nil {
		c.writeImportError(w, r, err)
		return
	}
	if err := os.Remove(path); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("failed to remove import upload")
	}
	writeJSON(w, http.StatusOK, res)
}

// writeImportError reports file parsing failures as 422; everything else goes
// through the shared mapping.
func (c *ImportAPIController) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unsupported *importer.UnsupportedFormatError
		storeErr    *importer.StorePersistenceError
	)
	if errors.As(err, &unsupported) || errors.As(err, &storeErr) || errors.Is(err, services.ErrInvalidMapping) {
		writeServiceError(w, r, err)
		return
	}
	writeAPIError(w, r, http.StatusUnprocessableEntity, "IMPORT_PARSE_FAILED", err.Error())
}

func (c *ImportAPIController) Session(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	session, err := c.imports.Session(ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page := session.Page(queryInt(r, "page", 1), queryInt(r, "size", 0))
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"counts":     session.Counts(),
		"complete":   session.IsComplete(),
		"page":       page,
	})
}

func (c *ImportAPIController) Resolve(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	counts, err := c.imports.ResolveOne(r.Context(), ownerID, id, req.Index, importer.Action(req.Action))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"counts":   counts,
		"complete": counts.Pending == 0,
	})
}

func (c *ImportAPIController) ResolveSelected(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req resolveSelectedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := c.imports.ResolveSelected(r.Context(), ownerID, id, req.Indices, importer.Action(req.Action))
	if err != nil && len(res.Resolved) == 0 && len(res.Failed) == 0 {
		writeServiceError(w, r, err)
		return
	}
	body := map[string]any{"result": res}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (c *ImportAPIController) SkipAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	n, err := c.imports.SkipAll(ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skipped": n})
}

func (c *ImportAPIController) Close(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if !c.imports.Close(ownerID, id) {
		writeServiceError(w, r, services.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
