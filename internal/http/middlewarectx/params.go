package middlewarectx

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/solvix/solvix-devis/internal/http/response"
)

// UUIDParam answers 404 when the route parameter name is not a canonical
// hyphenated UUID, the only form row ids take.
func UUIDParam(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, name)
			if len(id) != 36 || uuid.Validate(id) != nil {
				response.Fail(w, r, http.StatusNotFound, "not found")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
