package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/donation"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/outreach"
	"github.com/iota-uz/shepherd/modules/contacts/services"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/constants"
	"github.com/iota-uz/shepherd/pkg/httpapi"
	"github.com/iota-uz/shepherd/pkg/middleware"
)

type ContactAPIController struct {
	app      application.Application
	contacts *services.ContactService
	history  *services.HistoryService
	drafts   *services.DraftService
	exports  *services.ExportService
	opts     Options
	basePath string
}

func NewContactAPIController(app application.Application, opts Options) application.Controller {
	return &ContactAPIController{
		app:      app,
		contacts: app.Service(services.ContactService{}).(*services.ContactService),
		history:  app.Service(services.HistoryService{}).(*services.HistoryService),
		drafts:   app.Service(services.DraftService{}).(*services.DraftService),
		exports:  app.Service(services.ExportService{}).(*services.ExportService),
		opts:     opts.withDefaults(),
		basePath: "/contacts/api/contacts",
	}
}

func (c *ContactAPIController) Key() string {
	return c.basePath
}

func (c *ContactAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.ProvideOwner(c.opts.OwnerHeader))

	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/tags", c.Tags).Methods(http.MethodGet)
	router.HandleFunc("/export.xlsx", c.Export).Methods(http.MethodGet)
	router.HandleFunc("/check-duplicates", c.CheckDuplicates).Methods(http.MethodPost)
	router.HandleFunc("/"+uuidPattern, c.Get).Methods(http.MethodGet)
	router.HandleFunc("/"+uuidPattern, c.Update).Methods(http.MethodPut)
	router.HandleFunc("/"+uuidPattern, c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/"+uuidPattern+"/donations", c.Donations).Methods(http.MethodGet)
	router.HandleFunc("/"+uuidPattern+"/donations", c.RecordDonation).Methods(http.MethodPost)
	router.HandleFunc("/"+uuidPattern+"/outreach", c.Outreach).Methods(http.MethodGet)
	router.HandleFunc("/"+uuidPattern+"/outreach", c.RecordOutreach).Methods(http.MethodPost)
	router.HandleFunc("/"+uuidPattern+"/outreach/draft", c.Draft).Methods(http.MethodPost)
}

func (c *ContactAPIController) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	page := queryInt(r, "page", 1)
	size := c.opts.pageSize(queryInt(r, "size", c.opts.PageSize))
	params := &contact.FindParams{
		OwnerID: ownerID,
		Tag:     strings.TrimSpace(r.URL.Query().Get("tag")),
		Limit:   size,
		Offset:  (page - 1) * size,
	}
	items, total, err := c.contacts.GetPaginated(r.Context(), params, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []contact.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func (c *ContactAPIController) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	found, err := c.contacts.GetByID(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (c *ContactAPIController) decodeContact(w http.ResponseWriter, r *http.Request) (*contact.CreateDTO, bool) {
	var dto contact.CreateDTO
	if !decodeJSON(w, r, &dto) {
		return nil, false
	}
	if errs, ok := dto.Ok(); !ok {
		message := "validation failed"
		for _, key := range []string{"FirstName", "LastName", "Email"} {
			if v := strings.TrimSpace(errs[key]); v != "" {
				message = v
				break
			}
		}
		writeAPIError(w, r, http.StatusUnprocessableEntity, "CONTACT_VALIDATION_FAILED", message)
		return nil, false
	}
	return &dto, true
}

// Create rejects likely duplicates with 409 unless ?force=true is passed.
func (c *ContactAPIController) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	dto, ok := c.decodeContact(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	created, err := c.contacts.Create(r.Context(), ownerID, dto, force)
	if err != nil {
		var dup *services.DuplicateContactError
		if errors.As(err, &dup) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"code":    "CONTACT_DUPLICATE",
				"message": err.Error(),
				"matches": dup.Matches,
				"meta":    map[string]string{"request_id": httpapi.RequestID(w, r)},
			})
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *ContactAPIController) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dto, ok := c.decodeContact(w, r)
	if !ok {
		return
	}
	updated, err := c.contacts.Update(r.Context(), ownerID, id, dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (c *ContactAPIController) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := c.contacts.Delete(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ContactAPIController) Tags(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	tags, err := c.contacts.Tags(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (c *ContactAPIController) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var dto contact.CreateDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	matches, err := c.contacts.CheckDuplicates(r.Context(), ownerID, dto.ToFields())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (c *ContactAPIController) Export(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := c.exports.WriteXLSX(r.Context(), ownerID, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	filename := fmt.Sprintf("contacts-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (c *ContactAPIController) Donations(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	items, err := c.history.Donations(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []donation.Donation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ContactAPIController) RecordDonation(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var dto donation.CreateDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if err := constants.Validate.Struct(&dto); err != nil {
		writeAPIError(w, r, http.StatusUnprocessableEntity, "DONATION_VALIDATION_FAILED", validationMessage(err))
		return
	}
	created, err := c.history.RecordDonation(r.Context(), ownerID, id, &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *ContactAPIController) Outreach(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	items, err := c.history.Outreach(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []outreach.Outreach{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ContactAPIController) RecordOutreach(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var dto outreach.CreateDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	dto.Channel = strings.ToLower(strings.TrimSpace(dto.Channel))
	if err := constants.Validate.Struct(&dto); err != nil {
		writeAPIError(w, r, http.StatusUnprocessableEntity, "OUTREACH_VALIDATION_FAILED", validationMessage(err))
		return
	}
	created, err := c.history.RecordOutreach(r.Context(), ownerID, id, &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *ContactAPIController) Draft(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req services.DraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := constants.Validate.Struct(&req); err != nil {
		writeAPIError(w, r, http.StatusUnprocessableEntity, "DRAFT_VALIDATION_FAILED", validationMessage(err))
		return
	}
	draft, err := c.drafts.Draft(r.Context(), ownerID, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
