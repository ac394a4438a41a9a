package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// RowRecord is the transport shape for one row: the id plus every remaining
// column packed into a single opaque JSON string. The packing is lossy on
// purpose: values travel as their string form and the original column type
// is not recoverable from the encoded record.
type RowRecord struct {
	ID       any    `json:"id"`
	UserData string `json:"user_data"`
}

// WritePayload is the submitted counterpart: nil ID means insert, non-nil
// means update-by-id. UserData is decoded, never trusted.
type WritePayload struct {
	ID       any    `json:"id"`
	UserData string `json:"user_data"`
}

// EncodeRow converts a raw row map into a RowRecord. The id column becomes
// the identifier; every other column is stringified into the opaque bag.
func EncodeRow(row map[string]any) (RowRecord, error) {
	bag := make(map[string]string, len(row))
	for col, val := range row {
		if col == "id" {
			continue
		}
		bag[col] = stringifyValue(val)
	}

	data, err := json.Marshal(bag)
	if err != nil {
		return RowRecord{}, fmt.Errorf("encode row: %w", err)
	}
	return RowRecord{ID: row["id"], UserData: string(data)}, nil
}

// DecodePayload parses the opaque user_data string into column/value pairs.
// Values pass through untyped; the store coerces or rejects them at write
// time. Invalid JSON is a MalformedPayload error.
func DecodePayload(userData string) (map[string]any, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(userData), &values); err != nil {
		return nil, MalformedPayloadError(err)
	}
	return values, nil
}

// stringifyValue renders one column value in its canonical string form.
// NULL renders as the empty string.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		// Integral floats print without a trailing ".0" so numeric values
		// survive a write/read round-trip in their submitted form
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
