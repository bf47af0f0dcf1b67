package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/shepherd/pkg/composables"
	"github.com/iota-uz/shepherd/pkg/httpapi"
)

// ProvideOwner reads the authenticated owner id from header. Authentication
// happens upstream; requests without a valid owner are rejected with 401.
func ProvideOwner(header string) mux.MiddlewareFunc {
	if strings.TrimSpace(header) == "" {
		header = "X-Owner-ID"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			ownerID, err := uuid.Parse(raw)
			if raw == "" || err != nil || ownerID == uuid.Nil {
				_ = httpapi.Error(w, r, http.StatusUnauthorized, httpapi.CodeOwnerRequired, "missing or invalid "+header, nil)
				return
			}
			ctx := composables.WithOwnerID(r.Context(), ownerID)
			logger := composables.UseLogger(ctx).WithField("owner-id", ownerID.String())
			ctx = composables.WithLogger(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
