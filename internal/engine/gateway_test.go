package engine

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledash/internal/metadata"
	"tabledash/internal/store"
)

func newMockGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &store.Store{DB: db, Dialect: &store.PostgresDialect{}}
	return NewGateway(s), mock
}

func expectTableExists(mock sqlmock.Sqlmock, exists bool) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectColumns(mock sqlmock.Sqlmock, cols ...string) {
	rows := sqlmock.NewRows([]string{"column_name", "data_type"})
	for _, c := range cols {
		rows.AddRow(c, "text")
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).WillReturnRows(rows)
}

func managerUser() *metadata.User {
	return &metadata.User{
		Username:         "manager",
		Active:           true,
		AccessibleTables: []string{"employees", "projects"},
		Permissions: map[string][]metadata.Capability{
			"employees": {metadata.CapabilityView},
			"projects":  {metadata.CapabilityView, metadata.CapabilityEdit},
		},
	}
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %v", err)
	return appErr.Code
}

// --- read path ---

func TestReadTableAccessDenied(t *testing.T) {
	g, mock := newMockGateway(t)

	// departments is not in the accessible list, even though a crafted
	// permissions blob could mention it
	_, err := g.ReadTable(context.Background(), managerUser(), "departments", ModeSpreadsheet)
	assert.Equal(t, "ACCESS_DENIED", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet(), "no query may be issued before the permission check passes")
}

func TestReadTableInvalidMode(t *testing.T) {
	g, mock := newMockGateway(t)

	_, err := g.ReadTable(context.Background(), managerUser(), "projects", "bogus_mode")
	assert.Equal(t, "INVALID_MODE", appErrCode(t, err))
	// Driver saw nothing: not even the existence check ran
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableNotFound(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, false)

	user := managerUser()
	user.AccessibleTables = append(user.AccessibleTables, "nonexistent_table")

	_, err := g.ReadTable(context.Background(), user, "nonexistent_table", ModeSpreadsheet)
	assert.Equal(t, "TABLE_NOT_FOUND", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableSpreadsheet(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, status FROM projects")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).
			AddRow(int64(1), "Website Redesign", "In Progress").
			AddRow(int64(2), "Mobile App Development", "Planning"))

	result, err := g.ReadTable(context.Background(), managerUser(), "projects", ModeSpreadsheet)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	// Row order is preserved from the query result
	assert.Equal(t, int64(1), result.Rows[0].ID)
	assert.Equal(t, int64(2), result.Rows[1].ID)
	assert.JSONEq(t, `{"name":"Website Redesign","status":"In Progress"}`, result.Rows[0].UserData)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableFormModeSkipsRowFetch(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")

	result, err := g.ReadTable(context.Background(), managerUser(), "projects", ModeForm)
	require.NoError(t, err)
	assert.True(t, result.Form)
	assert.Equal(t, []string{"name", "status"}, result.Columns)
	// No SELECT against the table itself
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableMissingIDColumn(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "name", "status")

	_, err := g.ReadTable(context.Background(), managerUser(), "projects", ModeList)
	assert.Equal(t, "STORE_ERROR", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- write path ---

func TestWriteTableEditDenied(t *testing.T) {
	g, mock := newMockGateway(t)

	// manager can view employees but not edit them
	_, err := g.WriteTable(context.Background(), managerUser(), "employees",
		WritePayload{UserData: `{"name":"X"}`})
	assert.Equal(t, "ACCESS_DENIED", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTableInsert(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects (name, status) VALUES ($1, $2) RETURNING id")).
		WithArgs("X", "Y").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	id, err := g.WriteTable(context.Background(), managerUser(), "projects",
		WritePayload{UserData: `{"name":"X","status":"Y"}`})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTableUpdate(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET name = $1, status = $2 WHERE id = $3")).
		WithArgs("X", "Done", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := g.WriteTable(context.Background(), managerUser(), "projects",
		WritePayload{ID: int64(5), UserData: `{"name":"X","status":"Done"}`})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTableMalformedPayload(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name")

	_, err := g.WriteTable(context.Background(), managerUser(), "projects",
		WritePayload{UserData: "not json at all"})
	assert.Equal(t, "MALFORMED_PAYLOAD", appErrCode(t, err))
	// No transaction was opened, the store is untouched
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A crafted column key outside the introspected set must fail closed before
// any statement text is built.
func TestWriteTableUnknownColumnFailsClosed(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")

	_, err := g.WriteTable(context.Background(), managerUser(), "projects",
		WritePayload{UserData: `{"name":"X","status; DROP TABLE projects; --":"Y"}`})
	assert.Equal(t, "STORE_ERROR", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTableStoreErrorRollsBack(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, true)
	expectColumns(mock, "id", "name", "status")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects")).
		WithArgs("X").
		WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	_, err := g.WriteTable(context.Background(), managerUser(), "projects",
		WritePayload{UserData: `{"name":"X"}`})
	assert.Equal(t, "STORE_ERROR", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTableNotFound(t *testing.T) {
	g, mock := newMockGateway(t)
	expectTableExists(mock, false)

	_, err := g.WriteTable(context.Background(), managerUser(), "projects",
		WritePayload{UserData: `{"name":"X"}`})
	assert.Equal(t, "TABLE_NOT_FOUND", appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
