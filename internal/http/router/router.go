// Package router arma el árbol de rutas del gateway.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/identity-gateway/internal/http/controllers"
	httperrors "github.com/dropDatabas3/identity-gateway/internal/http/errors"
	mw "github.com/dropDatabas3/identity-gateway/internal/http/middlewares"
	"github.com/dropDatabas3/identity-gateway/internal/metrics"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

// Deps son las dependencias del router.
type Deps struct {
	Controller *controllers.Controller
	Verifier   *token.Verifier
}

// New construye el handler raíz. Todas las rutas de negocio exigen bearer
// token válido más rol admin; /health y /metrics quedan abiertas.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// WithMetrics va como middleware de chi para poder leer el route pattern;
	// el resto del stack externo se compone al final con Chain.
	r.Use(mw.WithMetrics())

	r.Get("/health", controllers.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Admisión: verificar token, luego exigir admin. Siempre en ese orden y
	// antes de cualquier acción.
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(deps.Verifier))
		r.Use(mw.RequireAdmin())

		r.Get("/suppliers", deps.Controller.ListSuppliers)
		r.Post("/suppliers", deps.Controller.CreateSupplier)

		r.Get("/staff", deps.Controller.ListWarehouseStaff)
		r.Post("/staff", deps.Controller.CreateWarehouseStaff)

		r.Get("/users/{userID}", deps.Controller.GetUser)
		r.Delete("/users/{userID}", deps.Controller.DeleteUser)

		r.Get("/groups", deps.Controller.ListGroups)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})

	return mw.Chain(r, mw.WithRequestID(), mw.WithRecover(), mw.WithLogging())
}
