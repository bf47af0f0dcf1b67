package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/domain/entities/donation"
	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/modules/contacts/services"
	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/httpapi"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		panic(err)
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	if err := httpapi.Error(w, r, status, code, message, nil); err != nil {
		panic(err)
	}
}

// writeServiceError maps domain and service errors onto API responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		unsupported *importer.UnsupportedFormatError
		resolved    *importer.AlreadyResolvedError
		storeErr    *importer.StorePersistenceError
	)
	switch {
	case errors.As(err, &unsupported):
		writeAPIError(w, r, http.StatusUnsupportedMediaType, "IMPORT_UNSUPPORTED_FORMAT", err.Error())
	case errors.As(err, &resolved):
		writeAPIError(w, r, http.StatusConflict, "IMPORT_ALREADY_RESOLVED", err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		writeAPIError(w, r, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, importer.ErrEntryNotFound):
		writeAPIError(w, r, http.StatusNotFound, "ENTRY_NOT_FOUND", err.Error())
	case errors.Is(err, contact.ErrNotFound):
		writeAPIError(w, r, http.StatusNotFound, "CONTACT_NOT_FOUND", err.Error())
	case errors.As(err, &storeErr):
		writeAPIError(w, r, http.StatusBadGateway, "IMPORT_STORE_FAILED", err.Error())
	case errors.Is(err, services.ErrInvalidMapping):
		writeAPIError(w, r, http.StatusUnprocessableEntity, "IMPORT_INVALID_MAPPING", err.Error())
	case errors.Is(err, importer.ErrInvalidAction):
		writeAPIError(w, r, http.StatusUnprocessableEntity, "INVALID_ACTION", err.Error())
	case errors.Is(err, donation.ErrInvalidAmount):
		writeAPIError(w, r, http.StatusUnprocessableEntity, "DONATION_INVALID_AMOUNT", err.Error())
	case errors.Is(err, services.ErrDraftingDisabled):
		writeAPIError(w, r, http.StatusServiceUnavailable, "DRAFTING_DISABLED", err.Error())
	case errors.Is(err, services.ErrEmptyDraft):
		writeAPIError(w, r, http.StatusBadGateway, "DRAFT_EMPTY", err.Error())
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("request failed")
		writeAPIError(w, r, http.StatusInternalServerError, httpapi.CodeInternal, "internal error")
	}
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return false
	}
	return true
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, err := composables.UseOwnerID(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusUnauthorized, "OWNER_REQUIRED", err.Error())
		return uuid.Nil, false
	}
	return ownerID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

type resolveRequest struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
}

type resolveSelectedRequest struct {
	Indices []int  `json:"indices"`
	Action  string `json:"action"`
}

const uuidPattern = "{id:[0-9a-fA-F-]{36}}"
