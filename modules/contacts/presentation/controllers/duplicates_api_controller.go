package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/modules/contacts/services"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/middleware"
)

type DuplicatesAPIController struct {
	app      application.Application
	dupes    *services.DuplicateService
	opts     Options
	basePath string
}

func NewDuplicatesAPIController(app application.Application, opts Options) application.Controller {
	return &DuplicatesAPIController{
		app:      app,
		dupes:    app.Service(services.DuplicateService{}).(*services.DuplicateService),
		opts:     opts.withDefaults(),
		basePath: "/contacts/api/duplicates",
	}
}

func (c *DuplicatesAPIController) Key() string {
	return c.basePath
}

func (c *DuplicatesAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.ProvideOwner(c.opts.OwnerHeader))

	router.HandleFunc("/reason-fields", c.ReasonFields).Methods(http.MethodGet)
	router.HandleFunc("/scan", c.Scan).Methods(http.MethodPost)
	router.HandleFunc("/reviews/"+uuidPattern, c.Review).Methods(http.MethodGet)
	router.HandleFunc("/reviews/"+uuidPattern+"/resolve", c.Resolve).Methods(http.MethodPost)
	router.HandleFunc("/reviews/"+uuidPattern+"/resolve-selected", c.ResolveSelected).Methods(http.MethodPost)
	router.HandleFunc("/reviews/"+uuidPattern+"/skip-all", c.SkipAll).Methods(http.MethodPost)
}

// ReasonFields tells a client which contact fields to highlight for each match reason.
func (c *DuplicatesAPIController) ReasonFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, importer.ReasonFields)
}

func (c *DuplicatesAPIController) Scan(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	res, err := c.dupes.Scan(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *DuplicatesAPIController) Review(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	review, err := c.dupes.Review(ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"counts":     review.Counts(),
		"complete":   review.IsComplete(),
		"deleted":    review.Deleted(),
		"page":       review.Page(queryInt(r, "page", 1), queryInt(r, "size", 0)),
	})
}

func (c *DuplicatesAPIController) Resolve(w http.ResponseWriter, r *http.Request) {
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
	cascaded, err := c.dupes.Resolve(r.Context(), ownerID, id, req.Index, importer.PairAction(req.Action))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cascaded == nil {
		cascaded = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cascaded": cascaded})
}

func (c *DuplicatesAPIController) ResolveSelected(w http.ResponseWriter, r *http.Request) {
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
	res, err := c.dupes.ResolveSelected(r.Context(), ownerID, id, req.Indices, importer.PairAction(req.Action))
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

func (c *DuplicatesAPIController) SkipAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	n, err := c.dupes.SkipAll(ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skipped": n})
}
