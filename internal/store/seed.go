package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type sampleTable struct {
	name        string
	description string
	columns     string
	inserts     []string
}

type sampleUser struct {
	username         string
	isAdmin          bool
	accessibleTables []string
	permissions      map[string][]string
}

// SeedSampleData creates the demo fixture: three tables with a few rows,
// their metadata descriptions, and three users with different grants.
// Idempotent: existing tables and users are left alone except for grants,
// which are reset to the fixture values.
func SeedSampleData(ctx context.Context, s *Store) error {
	tables := []sampleTable{
		{
			name:        "employees",
			description: "Employee Information",
			columns:     "name TEXT NOT NULL, position TEXT",
			inserts: []string{
				`INSERT INTO employees (name, position) VALUES ('John Doe', 'Developer'), ('Jane Smith', 'Manager'), ('Bob Johnson', 'Designer')`,
			},
		},
		{
			name:        "projects",
			description: "Project Details",
			columns:     "name TEXT NOT NULL, status TEXT",
			inserts: []string{
				`INSERT INTO projects (name, status) VALUES ('Website Redesign', 'In Progress'), ('Mobile App Development', 'Planning'), ('Database Optimization', 'Completed')`,
			},
		},
		{
			name:        "departments",
			description: "Department Information",
			columns:     "name TEXT NOT NULL, head TEXT",
			inserts: []string{
				`INSERT INTO departments (name, head) VALUES ('IT', 'John Smith'), ('HR', 'Emily Brown'), ('Finance', 'David Wilson')`,
			},
		},
	}

	users := []sampleUser{
		{
			username:         "admin",
			isAdmin:          true,
			accessibleTables: []string{"employees", "projects", "departments"},
			permissions: map[string][]string{
				"employees":   {"view", "edit"},
				"projects":    {"view", "edit"},
				"departments": {"view", "edit"},
			},
		},
		{
			username:         "manager",
			accessibleTables: []string{"employees", "projects"},
			permissions: map[string][]string{
				"employees": {"view"},
				"projects":  {"view", "edit"},
			},
		},
		{
			username:         "employee",
			accessibleTables: []string{"projects"},
			permissions: map[string][]string{
				"projects": {"view"},
			},
		},
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, tbl := range tables {
		exists, err := s.Dialect.TableExists(ctx, tx, tbl.name)
		if err != nil {
			return fmt.Errorf("check table %s: %w", tbl.name, err)
		}
		if !exists {
			ddl := fmt.Sprintf("CREATE TABLE %s (%s, %s)", tbl.name, s.idColumnDDL(), tbl.columns)
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create table %s: %w", tbl.name, err)
			}
			for _, ins := range tbl.inserts {
				if _, err := tx.ExecContext(ctx, ins); err != nil {
					return fmt.Errorf("seed rows for %s: %w", tbl.name, err)
				}
			}
		}

		if err := s.upsertTableMetadata(ctx, tx, tbl.name, tbl.description); err != nil {
			return fmt.Errorf("metadata for %s: %w", tbl.name, err)
		}
	}

	for _, u := range users {
		if err := s.upsertSampleUser(ctx, tx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// idColumnDDL returns the primary key column definition for sample tables.
// Every user-facing table carries an auto-generated integer id.
func (s *Store) idColumnDDL() string {
	if s.Dialect.Name() == "sqlite" {
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY"
}

func (s *Store) upsertTableMetadata(ctx context.Context, tx Querier, tableName, description string) error {
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT COUNT(*) FROM _table_metadata WHERE table_name = %s", pb.Add(tableName))
	var count int
	if err := tx.QueryRowContext(ctx, sqlStr, pb.Params()...).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	pb = s.Dialect.NewParamBuilder()
	sqlStr = fmt.Sprintf("INSERT INTO _table_metadata (id, table_name, description) VALUES (%s, %s, %s)",
		pb.Add(uuid.New().String()), pb.Add(tableName), pb.Add(description))
	_, err := tx.ExecContext(ctx, sqlStr, pb.Params()...)
	return err
}

func (s *Store) upsertSampleUser(ctx context.Context, tx Querier, u sampleUser) error {
	tablesJSON, err := json.Marshal(u.accessibleTables)
	if err != nil {
		return err
	}
	permsJSON, err := json.Marshal(u.permissions)
	if err != nil {
		return err
	}

	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT COUNT(*) FROM _users WHERE username = %s", pb.Add(u.username))
	var count int
	if err := tx.QueryRowContext(ctx, sqlStr, pb.Params()...).Scan(&count); err != nil {
		return err
	}

	if count > 0 {
		pb = s.Dialect.NewParamBuilder()
		sqlStr = fmt.Sprintf("UPDATE _users SET accessible_tables = %s, permissions = %s WHERE username = %s",
			pb.Add(string(tablesJSON)), pb.Add(string(permsJSON)), pb.Add(u.username))
		_, err = tx.ExecContext(ctx, sqlStr, pb.Params()...)
		return err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	pb = s.Dialect.NewParamBuilder()
	sqlStr = fmt.Sprintf(
		"INSERT INTO _users (id, username, password_hash, accessible_tables, permissions, is_admin) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(uuid.New().String()), pb.Add(u.username), pb.Add(string(hashBytes)),
		pb.Add(string(tablesJSON)), pb.Add(string(permsJSON)), pb.Add(u.isAdmin))
	_, err = tx.ExecContext(ctx, sqlStr, pb.Params()...)
	return err
}
