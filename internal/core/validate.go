package core

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var errorPrinter = message.NewPrinter(language.English)

// SupportedProtocolMajor is the protocol major version this client speaks.
// Manifests declaring the same major are accepted regardless of minor.
const SupportedProtocolMajor uint64 = 1

//go:embed schema/manifest.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("manifest.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateManifest parses raw manifest bytes and checks them against the
// protocol: structural validation against the embedded schema, then the
// semantic rules the schema cannot express (protocol version compatibility,
// ID uniqueness, absolute raw_base). Unknown fields are ignored.
func ValidateManifest(raw []byte) (*StoreManifest, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	if err := schema.Validate(inst); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, &SchemaError{Issues: []string{err.Error()}}
		}
		return nil, &SchemaError{Issues: flattenIssues(verr)}
	}

	var m StoreManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &ParseError{Err: err}
	}

	if err := checkProtocol(&m.Protocol); err != nil {
		return nil, err
	}
	if err := checkUniqueIDs(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// checkProtocol enforces major-version compatibility and an absolute
// raw_base. Minor version differences within the supported major are
// accepted; a future major may be structurally incompatible, so it gets a
// distinct error.
func checkProtocol(p *Protocol) error {
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		return &IncompatibleProtocolError{Version: p.Version, SupportedMajor: SupportedProtocolMajor}
	}
	if v.Major() != SupportedProtocolMajor {
		return &IncompatibleProtocolError{Version: p.Version, SupportedMajor: SupportedProtocolMajor}
	}

	u, err := url.Parse(p.RawBase)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &InvalidFieldError{Field: "protocol.raw_base", Reason: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &InvalidFieldError{Field: "protocol.raw_base", Reason: "must be an http(s) URL"}
	}
	return nil
}

// checkUniqueIDs rejects duplicate IDs across the combined agents+skills
// set. Silent precedence between duplicates would be unverifiable, so the
// whole manifest is refused instead.
func checkUniqueIDs(m *StoreManifest) error {
	seen := make(map[string]struct{}, len(m.Agents)+len(m.Skills))

	check := func(id string) error {
		if _, dup := seen[id]; dup {
			return &DuplicateItemError{ID: id}
		}
		seen[id] = struct{}{}
		return nil
	}

	for i := range m.Agents {
		if err := check(m.Agents[i].ID); err != nil {
			return err
		}
	}
	for i := range m.Skills {
		if err := check(m.Skills[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// flattenIssues collects leaf validation errors as readable strings.
func flattenIssues(verr *jsonschema.ValidationError) []string {
	var issues []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			msg := ""
			if e.ErrorKind != nil {
				msg = e.ErrorKind.LocalizedString(errorPrinter)
			}
			issues = append(issues, fmt.Sprintf("%s: %s", loc, msg))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	if len(issues) == 0 {
		issues = []string{verr.Error()}
	}
	return issues
}
