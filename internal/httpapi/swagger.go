//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// MountSwagger serves the generated OpenAPI UI at /swagger/. Requires docs
// generated with `swag init` before building with -tags=swagger.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
