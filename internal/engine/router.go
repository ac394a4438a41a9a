package engine

import "github.com/gofiber/fiber/v2"

// RegisterTableRoutes wires the dynamic table routes behind the auth middleware.
func RegisterTableRoutes(app *fiber.App, h *Handler, authMW fiber.Handler) {
	app.Get("/get_table_data/:table/:mode", authMW, h.GetTableData)
	app.Post("/add_table_data/:table", authMW, h.AddTableData)
	app.Post("/update_table_data/:table", authMW, h.UpdateTableData)
	app.Get("/check_edit_permission/:table", authMW, h.CheckEditPermission)

	app.Get("/dashboard", authMW, h.Dashboard)
	app.Get("/check_user_tables", authMW, h.CheckUserTables)
}
