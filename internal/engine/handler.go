package engine

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"tabledash/internal/metadata"
	"tabledash/internal/store"
)

type Handler struct {
	store   *store.Store
	gateway *Gateway
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s, gateway: NewGateway(s)}
}

// Gateway exposes the handler's gateway, mainly for tests.
func (h *Handler) Gateway() *Gateway {
	return h.gateway
}

// GetTableData handles GET /get_table_data/:table/:mode
func (h *Handler) GetTableData(c *fiber.Ctx) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}

	table := c.Params("table")
	mode := c.Params("mode")

	result, err := h.gateway.ReadTable(c.Context(), user, table, mode)
	if err != nil {
		return err
	}

	if result.Form {
		return c.JSON(result.Columns)
	}
	return c.JSON(result.Rows)
}

// AddTableData handles POST /add_table_data/:table
func (h *Handler) AddTableData(c *fiber.Ctx) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}

	var body struct {
		UserData string `json:"user_data"`
	}
	if err := c.BodyParser(&body); err != nil {
		return MalformedPayloadError(err)
	}

	id, err := h.gateway.WriteTable(c.Context(), user, c.Params("table"),
		WritePayload{ID: nil, UserData: body.UserData})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "id": id})
}

// UpdateTableData handles POST /update_table_data/:table
func (h *Handler) UpdateTableData(c *fiber.Ctx) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}

	var body WritePayload
	if err := c.BodyParser(&body); err != nil {
		return MalformedPayloadError(err)
	}
	if body.ID == nil {
		return MissingIDError()
	}

	if _, err := h.gateway.WriteTable(c.Context(), user, c.Params("table"), body); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// CheckEditPermission handles GET /check_edit_permission/:table
func (h *Handler) CheckEditPermission(c *fiber.Ctx) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}

	return c.JSON(fiber.Map{"canEdit": h.gateway.CheckEditPermission(user, c.Params("table"))})
}

// Dashboard handles GET /dashboard: the user's accessible tables with their
// descriptions. Listing is gated by accessible_tables alone.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}

	tables, err := metadata.ListTableMetadata(c.Context(), h.store, user.AccessibleTables)
	if err != nil {
		return fmt.Errorf("list table metadata: %w", err)
	}
	return c.JSON(fiber.Map{"tables": tables})
}

// CheckUserTables handles GET /check_user_tables: the caller's own grants.
func (h *Handler) CheckUserTables(c *fiber.Ctx) error {
	user := getUser(c)
	if user == nil {
		return UnauthorizedError("Authentication required")
	}

	return c.JSON(fiber.Map{
		"username":          user.Username,
		"accessible_tables": user.AccessibleTables,
		"permissions":       user.Permissions,
	})
}

func getUser(c *fiber.Ctx) *metadata.User {
	user, _ := c.Locals("user").(*metadata.User)
	return user
}
