package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category sentinels. Every typed error below matches exactly one of these
// through errors.Is, so callers can branch on the class without knowing the
// concrete type.
var (
	// ErrNetwork covers transport failures, timeouts, and HTTP error
	// statuses while fetching from a store.
	ErrNetwork = errors.New("network error")

	// ErrInvalidManifest covers parse failures and manifests that violate
	// the protocol schema or its semantic rules.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrResolution covers content URL resolution failures.
	ErrResolution = errors.New("resolution error")

	// ErrConversion covers cross-format conversion failures.
	ErrConversion = errors.New("conversion error")

	// ErrNotFound is returned when an item ID is not listed by any
	// registered store.
	ErrNotFound = errors.New("item not found")

	// ErrStoreNotRegistered is returned when unregistering an unknown store.
	ErrStoreNotRegistered = errors.New("store not registered")

	// ErrStoreAlreadyRegistered is returned when registering a store twice.
	ErrStoreAlreadyRegistered = errors.New("store already registered")
)

// NetworkError wraps a transport-level failure with the URL that caused it.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// TimeoutError is returned when a fetch exceeds its deadline.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("timeout after %s fetching %s", e.After, e.URL)
	}
	return fmt.Sprintf("timeout fetching %s", e.URL)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrNetwork }

// HTTPError represents a non-200 HTTP response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Is(target error) bool { return target == ErrNetwork }

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool { return e.StatusCode == 404 }

// ParseError is returned when a fetched document cannot be parsed: manifest
// bytes that are not well-formed JSON, or a skill document whose frontmatter
// is malformed YAML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrInvalidManifest }

// SchemaError is returned when a manifest parses but fails structural
// validation against the manifest schema.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("manifest schema violation: %s", strings.Join(e.Issues, "; "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidManifest }

// InvalidFieldError is returned when a required field is present but
// semantically unusable, e.g. a relative raw_base URL.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("manifest field %q: %s", e.Field, e.Reason)
}

func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidManifest }

// IncompatibleProtocolError is returned when a manifest declares a protocol
// major version this client does not speak.
type IncompatibleProtocolError struct {
	Version        string
	SupportedMajor uint64
}

func (e *IncompatibleProtocolError) Error() string {
	return fmt.Sprintf("protocol version %q not supported (client speaks major %d)", e.Version, e.SupportedMajor)
}

func (e *IncompatibleProtocolError) Is(target error) bool { return target == ErrInvalidManifest }

// DuplicateItemError is returned when two entries in a manifest share an ID.
type DuplicateItemError struct {
	ID string
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("duplicate item id %q in manifest", e.ID)
}

func (e *DuplicateItemError) Is(target error) bool { return target == ErrInvalidManifest }

// UnknownResourceError is returned when a skill resource is requested that
// the manifest entry does not declare.
type UnknownResourceError struct {
	ItemID   string
	Kind     ResourceKind
	Filename string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("skill %q does not declare %s resource %q", e.ItemID, e.Kind, e.Filename)
}

func (e *UnknownResourceError) Is(target error) bool { return target == ErrResolution }

// PathTraversalError is returned when a path segment would escape the
// store's namespace.
type PathTraversalError struct {
	Segment string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path segment %q contains a parent-directory reference", e.Segment)
}

func (e *PathTraversalError) Is(target error) bool { return target == ErrResolution }

// UnsupportedConversionError is returned when a cross-format conversion
// lacks a required source field.
type UnsupportedConversionError struct {
	ItemID  string
	Missing string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q: missing %s", e.ItemID, e.Missing)
}

func (e *UnsupportedConversionError) Is(target error) bool { return target == ErrConversion }

// ItemNotFoundError wraps ErrNotFound with the ID that was looked up.
type ItemNotFoundError struct {
	ID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found in any registered store", e.ID)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrNotFound }
