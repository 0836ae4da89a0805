package federation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rapp-store/federation"
)

func manifestDoc(name, rawBase string) map[string]interface{} {
	return map[string]interface{}{
		"version": "1.0.0",
		"store": map[string]interface{}{
			"name":        name,
			"description": "integration test store",
			"owner":       "kody-w",
			"url":         rawBase,
			"license":     "MIT",
		},
		"protocol": map[string]interface{}{
			"version":            "1.0",
			"supports":           []string{"agent", "skill"},
			"discovery_endpoint": "manifest.json",
			"raw_base":           rawBase,
		},
		"agents": []interface{}{
			map[string]interface{}{
				"id":          "pdf_processor_agent",
				"type":        "agent",
				"name":        "pdf_processor_agent",
				"description": "Processes PDF documents",
				"version":     "1.0.0",
				"category":    "productivity",
				"path":        "agents/pdf_processor_agent",
				"filename":    "pdf_processor_agent.py",
				"tags":        []string{"pdf"},
			},
		},
		"skills": []interface{}{},
	}
}

func TestFederationEndToEnd(t *testing.T) {
	// The manifest's raw_base must point back at the test server, so wire
	// it up in two steps.
	var server *httptest.Server
	files := map[string]string{
		"/agents/pdf_processor_agent/pdf_processor_agent.py": "class PdfProcessorAgent: ...",
	}
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manifest.json" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(manifestDoc("Integration Store", server.URL))
			return
		}
		if body, ok := files[r.URL.Path]; ok {
			w.Write([]byte(body))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	fed := federation.New()
	ctx := context.Background()

	if err := fed.Register(ctx, server.URL); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	items, err := fed.ListItems(ctx, nil)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Item.Meta().ID != "pdf_processor_agent" {
		t.Fatalf("unexpected items: %+v", items)
	}

	results, err := fed.Search(ctx, "pdf")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(results))
	}

	content, err := fed.FetchItemContent(ctx, "pdf_processor_agent")
	if err != nil {
		t.Fatalf("FetchItemContent failed: %v", err)
	}
	if string(content.Data) != "class PdfProcessorAgent: ..." {
		t.Errorf("unexpected content %q", content.Data)
	}
	if content.InstallPath != "agents/pdf_processor_agent/pdf_processor_agent.py" {
		t.Errorf("unexpected install path %q", content.InstallPath)
	}
}

func TestFederationSearchAcrossStores(t *testing.T) {
	var one, two *httptest.Server
	one = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(manifestDoc("One", one.URL))
	}))
	defer one.Close()

	two = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := manifestDoc("Two", two.URL)
		doc["agents"] = []interface{}{}
		doc["skills"] = []interface{}{
			map[string]interface{}{
				"id":          "pdf-skill",
				"type":        "skill",
				"name":        "pdf-skill",
				"description": "Working with PDF files",
				"version":     "1.0.0",
				"category":    "productivity",
				"path":        "skills/pdf-skill",
				"tags":        []string{"pdf"},
			},
		}
		json.NewEncoder(w).Encode(doc)
	}))
	defer two.Close()

	fed := federation.New()
	ctx := context.Background()

	if err := fed.Register(ctx, one.URL); err != nil {
		t.Fatalf("registering store one: %v", err)
	}
	if err := fed.Register(ctx, two.URL); err != nil {
		t.Fatalf("registering store two: %v", err)
	}

	results, err := fed.Search(ctx, "pdf")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected results from both stores, got %d", len(results))
	}
	// Registration order breaks the tie.
	if results[0].StoreURL != one.URL || results[1].StoreURL != two.URL {
		t.Errorf("unexpected order: %q then %q", results[0].StoreURL, results[1].StoreURL)
	}
}

func TestFederationRejectsRelativeRawBase(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := manifestDoc("Relative", server.URL)
		doc["protocol"].(map[string]interface{})["raw_base"] = "content/main"
		json.NewEncoder(w).Encode(doc)
	}))
	defer server.Close()

	fed := federation.New()
	err := fed.Register(context.Background(), server.URL)

	var fieldErr *federation.InvalidFieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected InvalidFieldError, got %v", err)
	}
	if fieldErr.Field != "protocol.raw_base" {
		t.Errorf("unexpected field %q", fieldErr.Field)
	}
	if !errors.Is(err, federation.ErrInvalidManifest) {
		t.Error("should match ErrInvalidManifest")
	}
}

func TestFederationRejectsIncompatibleProtocol(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := manifestDoc("Future", server.URL)
		doc["protocol"].(map[string]interface{})["version"] = "2.0"
		json.NewEncoder(w).Encode(doc)
	}))
	defer server.Close()

	fed := federation.New()
	err := fed.Register(context.Background(), server.URL)

	var protoErr *federation.IncompatibleProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected IncompatibleProtocolError, got %v", err)
	}
	if !errors.Is(err, federation.ErrInvalidManifest) {
		t.Error("should match ErrInvalidManifest")
	}
}
