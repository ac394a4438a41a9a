package engine

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledash/internal/metadata"
	"tabledash/internal/store"
)

// newTestApp builds a Fiber app with the production error handler and a stub
// auth middleware that injects the given user.
func newTestApp(t *testing.T, user *metadata.User) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &store.Store{DB: db, Dialect: &store.PostgresDialect{}}
	h := NewHandler(s)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *AppError
			if errors.As(err, &appErr) {
				return c.Status(appErr.Status).JSON(fiber.Map{"error": appErr.Message})
			}
			return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
		},
	})
	authMW := func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return c.Next()
	}
	RegisterTableRoutes(app, h, authMW)
	return app, mock
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp.StatusCode, parsed
}

func TestGetTableDataAccessDenied(t *testing.T) {
	app, _ := newTestApp(t, managerUser())

	status, body := doRequest(t, app, "GET", "/get_table_data/departments/spreadsheet", "")
	assert.Equal(t, 403, status)
	assert.Equal(t, "Access denied", body["error"])
}

func TestGetTableDataNotFound(t *testing.T) {
	user := managerUser()
	user.AccessibleTables = append(user.AccessibleTables, "ghosts")
	app, mock := newTestApp(t, user)
	expectTableExists(mock, false)

	status, body := doRequest(t, app, "GET", "/get_table_data/ghosts/spreadsheet", "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "Table not found", body["error"])
}

func TestGetTableDataInvalidMode(t *testing.T) {
	app, mock := newTestApp(t, managerUser())

	status, body := doRequest(t, app, "GET", "/get_table_data/projects/bogus", "")
	assert.Equal(t, 400, status)
	assert.Equal(t, "Invalid view mode", body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTableDataRows(t *testing.T) {
	app, mock := newTestApp(t, managerUser())
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, status FROM projects")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).
			AddRow(int64(1), "Website Redesign", "In Progress"))

	req, _ := http.NewRequest("GET", "/get_table_data/projects/spreadsheet", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var rows []RowRecord
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.JSONEq(t, `{"name":"Website Redesign","status":"In Progress"}`, rows[0].UserData)
}

func TestAddTableData(t *testing.T) {
	app, mock := newTestApp(t, managerUser())
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects (name, status) VALUES ($1, $2) RETURNING id")).
		WithArgs("X", "Y").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	status, body := doRequest(t, app, "POST", "/add_table_data/projects",
		`{"user_data":"{\"name\":\"X\",\"status\":\"Y\"}"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(42), body["id"])
}

func TestAddTableDataForbidden(t *testing.T) {
	app, _ := newTestApp(t, managerUser())

	status, body := doRequest(t, app, "POST", "/add_table_data/employees",
		`{"user_data":"{\"name\":\"X\"}"}`)
	assert.Equal(t, 403, status)
	assert.Equal(t, "Access denied", body["error"])
}

func TestAddTableDataMalformed(t *testing.T) {
	app, mock := newTestApp(t, managerUser())
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name")

	status, _ := doRequest(t, app, "POST", "/add_table_data/projects",
		`{"user_data":"definitely not json"}`)
	assert.Equal(t, 400, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTableData(t *testing.T) {
	app, mock := newTestApp(t, managerUser())
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET name = $1, status = $2 WHERE id = $3")).
		WithArgs("X", "Done", float64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status, body := doRequest(t, app, "POST", "/update_table_data/projects",
		`{"id":5,"user_data":"{\"name\":\"X\",\"status\":\"Done\"}"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["success"])
}

func TestUpdateTableDataMissingID(t *testing.T) {
	app, mock := newTestApp(t, managerUser())

	status, _ := doRequest(t, app, "POST", "/update_table_data/projects",
		`{"user_data":"{\"name\":\"X\"}"}`)
	assert.Equal(t, 400, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckEditPermission(t *testing.T) {
	app, _ := newTestApp(t, managerUser())

	status, body := doRequest(t, app, "GET", "/check_edit_permission/projects", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["canEdit"])

	status, body = doRequest(t, app, "GET", "/check_edit_permission/employees", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["canEdit"])
}

func TestCheckUserTables(t *testing.T) {
	app, _ := newTestApp(t, managerUser())

	status, body := doRequest(t, app, "GET", "/check_user_tables", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "manager", body["username"])
	assert.ElementsMatch(t, []any{"employees", "projects"}, body["accessible_tables"])
}
