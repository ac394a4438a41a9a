package admin

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"tabledash/internal/store"
)

type Handler struct {
	store *store.Store
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

// RegisterAdminRoutes registers admin routes (auth + admin required).
func RegisterAdminRoutes(app *fiber.App, h *Handler, authMW, adminMW fiber.Handler) {
	grp := app.Group("/api/_admin", authMW, adminMW)

	grp.Post("/seed_sample_data", h.SeedSampleData)
	grp.Get("/users", h.ListUsers)
}

// SeedSampleData handles POST /api/_admin/seed_sample_data: creates the demo
// tables, metadata rows and users.
func (h *Handler) SeedSampleData(c *fiber.Ctx) error {
	if err := store.SeedSampleData(c.Context(), h.store); err != nil {
		return fmt.Errorf("seed sample data: %w", err)
	}
	return c.JSON(fiber.Map{"message": "Sample data and metadata seeded successfully"})
}

// ListUsers handles GET /api/_admin/users: every user with its grant blobs.
// Password hashes stay out of the response.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	rows, err := store.QueryRows(c.Context(), h.store.DB,
		"SELECT id, username, accessible_tables, permissions, is_admin, active FROM _users ORDER BY username")
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"data": rows})
}
