package metadata

import (
	"context"
	"fmt"
	"strings"

	"tabledash/internal/store"
)

// TableMetadata is a human description of one dashboard table. Purely
// descriptive: never consulted for access control.
type TableMetadata struct {
	TableName   string `json:"table_name"`
	Description string `json:"description"`
}

// ListTableMetadata returns descriptions for the given table names, keyed by
// table name. Tables without a metadata row are omitted.
func ListTableMetadata(ctx context.Context, s *store.Store, tableNames []string) (map[string]string, error) {
	result := make(map[string]string, len(tableNames))
	if len(tableNames) == 0 {
		return result, nil
	}

	pb := s.Dialect.NewParamBuilder()
	placeholders := make([]string, len(tableNames))
	for i, name := range tableNames {
		placeholders[i] = pb.Add(name)
	}
	sqlStr := fmt.Sprintf(
		"SELECT table_name, description FROM _table_metadata WHERE table_name IN (%s) ORDER BY table_name",
		strings.Join(placeholders, ", "))

	rows, err := store.QueryRows(ctx, s.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		name, _ := row["table_name"].(string)
		desc, _ := row["description"].(string)
		result[name] = desc
	}
	return result, nil
}
