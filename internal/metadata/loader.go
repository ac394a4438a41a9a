package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"tabledash/internal/store"
)

const userColumns = "id, username, password_hash, accessible_tables, permissions, is_admin, active"

// LoadUserByID reads one user row and decodes its grant blobs. Called by the
// auth middleware on every request so grants are always current.
func LoadUserByID(ctx context.Context, s *store.Store, id string) (*User, error) {
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM _users WHERE id = %s", userColumns, pb.Add(id))
	row, err := store.QueryRow(ctx, s.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	return userFromRow(row)
}

// LoadUserByUsername reads one user row by username (login path).
func LoadUserByUsername(ctx context.Context, s *store.Store, username string) (*User, error) {
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT %s FROM _users WHERE username = %s", userColumns, pb.Add(username))
	row, err := store.QueryRow(ctx, s.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	return userFromRow(row)
}

func userFromRow(row map[string]any) (*User, error) {
	u := &User{
		AccessibleTables: []string{},
		Permissions:      map[string][]Capability{},
	}
	u.ID, _ = row["id"].(string)
	u.Username, _ = row["username"].(string)
	u.PasswordHash, _ = row["password_hash"].(string)
	u.IsAdmin = store.AsBool(row["is_admin"])
	u.Active = store.AsBool(row["active"])

	if err := decodeGrantBlob(row["accessible_tables"], &u.AccessibleTables); err != nil {
		// Corrupt grants mean no access, not a crash
		log.Printf("WARN: user %s has invalid accessible_tables blob: %v", u.Username, err)
		u.AccessibleTables = []string{}
	}
	if err := decodeGrantBlob(row["permissions"], &u.Permissions); err != nil {
		log.Printf("WARN: user %s has invalid permissions blob: %v", u.Username, err)
		u.Permissions = map[string][]Capability{}
	}
	return u, nil
}

func decodeGrantBlob(v any, dst any) error {
	if v == nil {
		return nil
	}
	var raw []byte
	switch blob := v.(type) {
	case string:
		raw = []byte(blob)
	case []byte:
		raw = blob
	default:
		return fmt.Errorf("unexpected grant blob type %T", v)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
