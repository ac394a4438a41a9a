package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEncodeRow(t *testing.T) {
	row := map[string]any{
		"id":       int64(7),
		"name":     "Website Redesign",
		"budget":   float64(15000),
		"active":   true,
		"ended_at": nil,
		"due":      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	rec, err := EncodeRow(row)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if rec.ID != int64(7) {
		t.Fatalf("expected id 7, got %v", rec.ID)
	}

	var bag map[string]string
	if err := json.Unmarshal([]byte(rec.UserData), &bag); err != nil {
		t.Fatalf("user_data is not valid JSON: %v", err)
	}
	if _, ok := bag["id"]; ok {
		t.Error("id must not appear in the encoded bag")
	}

	want := map[string]string{
		"name":     "Website Redesign",
		"budget":   "15000",
		"active":   "true",
		"ended_at": "",
		"due":      "2026-03-01T12:00:00Z",
	}
	for k, v := range want {
		if bag[k] != v {
			t.Errorf("bag[%q] = %q, want %q", k, bag[k], v)
		}
	}
	if len(bag) != len(want) {
		t.Errorf("bag has %d entries, want %d", len(bag), len(want))
	}
}

func TestDecodePayload(t *testing.T) {
	values, err := DecodePayload(`{"name":"X","status":"Y"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if values["name"] != "X" || values["status"] != "Y" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	for _, payload := range []string{"not json", "[1,2,3]", `"just a string"`, ""} {
		_, err := DecodePayload(payload)
		if err == nil {
			t.Errorf("payload %q: expected error", payload)
			continue
		}
		var appErr *AppError
		if !errors.As(err, &appErr) || appErr.Code != "MALFORMED_PAYLOAD" {
			t.Errorf("payload %q: expected MALFORMED_PAYLOAD, got %v", payload, err)
		}
	}
}

// Encoding then decoding yields the same values in string form. This is the
// documented lossy boundary: types do not survive, strings do.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	row := map[string]any{"id": int64(1), "name": "X", "count": float64(3)}
	rec, err := EncodeRow(row)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	values, err := DecodePayload(rec.UserData)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if values["name"] != "X" {
		t.Errorf("name = %v", values["name"])
	}
	if values["count"] != "3" {
		t.Errorf("count = %v, want the string form", values["count"])
	}
}
