package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/realtime"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Incidents      *handlers.IncidentsHandler
	Problems       *handlers.ProblemsHandler
	Catalog        *handlers.CatalogHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
	Tokens         *auth.TokenManager
	Hub            *realtime.Hub
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	api.Post("/auth/register", cfg.Auth.Register)
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/auth/me", cfg.Auth.Me)

	protected.Get("/users", cfg.Auth.ListUsers)
	protected.Patch("/users/:id/role", cfg.Auth.UpdateRole)

	protected.Post("/incidents", cfg.Incidents.Create)
	protected.Get("/incidents", cfg.Incidents.List)
	protected.Get("/incidents/:id", cfg.Incidents.Get)
	protected.Patch("/incidents/:id", cfg.Incidents.Update)
	protected.Get("/incidents/:id/timeline", cfg.Incidents.Timeline)
	protected.Post("/incidents/:id/comments", cfg.Incidents.AddComment)
	protected.Get("/incidents/:id/comments", cfg.Incidents.ListComments)
	protected.Post("/incidents/:id/attachments", cfg.Incidents.AddAttachment)
	protected.Get("/incidents/:id/attachments", cfg.Incidents.ListAttachments)

	protected.Post("/problems", cfg.Problems.Create)
	protected.Get("/problems", cfg.Problems.List)
	protected.Get("/problems/:id", cfg.Problems.Get)
	protected.Patch("/problems/:id", cfg.Problems.Update)
	protected.Put("/problems/:id/status", cfg.Problems.SetStatus)
	protected.Post("/problems/:id/actions", cfg.Problems.CreateAction)
	protected.Get("/problems/:id/actions", cfg.Problems.ListActions)
	protected.Patch("/problems/:id/actions/:actionId", cfg.Problems.UpdateAction)
	protected.Post("/problems/:id/changes", cfg.Problems.CreateChange)
	protected.Get("/problems/:id/changes", cfg.Problems.ListChanges)
	protected.Post("/problems/:id/incidents", cfg.Problems.LinkIncident)
	protected.Get("/problems/:id/incidents", cfg.Problems.LinkedIncidents)
	protected.Get("/actions/mine", cfg.Problems.MyActions)

	protected.Get("/catalog/items", cfg.Catalog.ListItems)
	protected.Post("/catalog/items", cfg.Catalog.CreateItem)
	protected.Post("/catalog/items/:id/request", cfg.Catalog.RequestItem)

	protected.Get("/departments", cfg.Catalog.ListDepartments)
	protected.Post("/departments", cfg.Catalog.CreateDepartment)
	protected.Get("/categories", cfg.Catalog.ListCategories)
	protected.Post("/categories", cfg.Catalog.CreateCategory)
	protected.Get("/categories/:id/subcategories", cfg.Catalog.ListSubcategories)
	protected.Post("/categories/:id/subcategories", cfg.Catalog.CreateSubcategory)
	protected.Get("/sla-policies", cfg.Catalog.ListSLAPolicies)
	protected.Post("/sla-policies", cfg.Catalog.CreateSLAPolicy)
	protected.Put("/sla-policies/:id", cfg.Catalog.UpdateSLAPolicy)

	protected.Get("/stats/incidents", cfg.Stats.Overview)
	protected.Get("/stats/workload", cfg.Stats.Workload)

	registerWebsocket(app, cfg)
}

// registerWebsocket serves the live event stream. Browsers cannot set an
// Authorization header on a websocket handshake, so the token travels as a
// query parameter.
func registerWebsocket(app *fiber.App, cfg RouteConfig) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			return apperrors.NewUnauthorized("missing token")
		}
		if _, err := cfg.Tokens.ParseToken(token); err != nil {
			return apperrors.NewUnauthorized("invalid token")
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(realtime.WebsocketHandler(cfg.Hub, cfg.Logger)))
}
