package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestValidateManifestRoundTrip(t *testing.T) {
	want := testManifest("RAPP Store")
	raw := marshalManifest(t, want)

	got, err := ValidateManifest(raw)
	if err != nil {
		t.Fatalf("ValidateManifest failed: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestValidateManifestMalformedJSON(t *testing.T) {
	_, err := ValidateManifest([]byte(`{"version": `))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected ParseError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrInvalidManifest) {
		t.Error("ParseError should match ErrInvalidManifest")
	}
}

func TestValidateManifestMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]interface{})
	}{
		{"no version", func(m map[string]interface{}) { delete(m, "version") }},
		{"no store", func(m map[string]interface{}) { delete(m, "store") }},
		{"no protocol", func(m map[string]interface{}) { delete(m, "protocol") }},
		{"no store name", func(m map[string]interface{}) {
			delete(m["store"].(map[string]interface{}), "name")
		}},
		{"no raw_base", func(m map[string]interface{}) {
			delete(m["protocol"].(map[string]interface{}), "raw_base")
		}},
		{"empty agent id", func(m map[string]interface{}) {
			agents := m["agents"].([]interface{})
			agents[0].(map[string]interface{})["id"] = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc map[string]interface{}
			if err := json.Unmarshal(marshalManifest(t, testManifest("s")), &doc); err != nil {
				t.Fatal(err)
			}
			tt.mutate(doc)
			raw, err := json.Marshal(doc)
			if err != nil {
				t.Fatal(err)
			}

			_, err = ValidateManifest(raw)
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %T: %v", err, err)
			}
			if !errors.Is(err, ErrInvalidManifest) {
				t.Error("SchemaError should match ErrInvalidManifest")
			}
		})
	}
}

func TestValidateManifestProtocolVersions(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0", false},
		{"1.1", false},
		{"1.3", false},
		{"1.0.5", false},
		{"2.0", true},
		{"0.9", true},
		{"garbage", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			m := testManifest("s")
			m.Protocol.Version = tt.version

			_, err := ValidateManifest(marshalManifest(t, m))
			if tt.wantErr {
				var protoErr *IncompatibleProtocolError
				if !errors.As(err, &protoErr) {
					t.Fatalf("expected IncompatibleProtocolError, got %T: %v", err, err)
				}
				if protoErr.Version != tt.version {
					t.Errorf("expected version %q in error, got %q", tt.version, protoErr.Version)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateManifestDuplicateIDs(t *testing.T) {
	m := testManifest("s")
	skill := m.Skills[0]
	skill.ID = m.Agents[0].ID // collide with the agent across arrays
	m.Skills = append(m.Skills, skill)

	_, err := ValidateManifest(marshalManifest(t, m))
	var dupErr *DuplicateItemError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateItemError, got %T: %v", err, err)
	}
	if dupErr.ID != "pdf_processor_agent" {
		t.Errorf("expected duplicate id pdf_processor_agent, got %q", dupErr.ID)
	}
}

func TestValidateManifestRelativeRawBase(t *testing.T) {
	m := testManifest("s")
	m.Protocol.RawBase = "content/main"

	_, err := ValidateManifest(marshalManifest(t, m))
	var fieldErr *InvalidFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected InvalidFieldError, got %T: %v", err, err)
	}
	if fieldErr.Field != "protocol.raw_base" {
		t.Errorf("unexpected field: %q", fieldErr.Field)
	}
}

func TestValidateManifestUnknownFieldsIgnored(t *testing.T) {
	var doc map[string]interface{}
	if err := json.Unmarshal(marshalManifest(t, testManifest("s")), &doc); err != nil {
		t.Fatal(err)
	}
	doc["x_future_extension"] = map[string]interface{}{"anything": true}
	doc["store"].(map[string]interface{})["x_banner"] = "ignored"
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateManifest(raw); err != nil {
		t.Fatalf("unknown fields should be ignored, got %v", err)
	}
}

func TestValidateManifestAbsentItemArrays(t *testing.T) {
	raw := []byte(`{
		"version": "1.0.0",
		"store": {"name": "s", "description": "d", "owner": "o", "url": "https://example.com", "license": "MIT"},
		"protocol": {"version": "1.0", "supports": ["agent"], "discovery_endpoint": "manifest.json", "raw_base": "https://example.com/raw"}
	}`)

	m, err := ValidateManifest(raw)
	if err != nil {
		t.Fatalf("absent agents/skills should validate: %v", err)
	}
	if len(m.Agents) != 0 || len(m.Skills) != 0 {
		t.Errorf("expected empty item sets, got %d agents, %d skills", len(m.Agents), len(m.Skills))
	}
}
