package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// testManifest returns a valid manifest with one agent and one skill.
func testManifest(storeName string) *StoreManifest {
	return &StoreManifest{
		SchemaVersion: "1.0.0",
		Store: StoreInfo{
			Name:        storeName,
			Description: "test store",
			Owner:       "kody-w",
			URL:         "https://github.com/kody-w/RAPP_Store",
			License:     "MIT",
		},
		Protocol: Protocol{
			Version:           "1.0",
			Supports:          []ItemType{ItemTypeAgent, ItemTypeSkill},
			DiscoveryEndpoint: "manifest.json",
			RawBase:           "https://raw.githubusercontent.com/kody-w/RAPP_Store/main",
		},
		Categories: []Category{
			{ID: "productivity", Name: "Productivity"},
		},
		Agents: []AgentEntry{
			{
				ItemMeta: ItemMeta{
					ID:          "pdf_processor_agent",
					Type:        ItemTypeAgent,
					Name:        "PDF Processor",
					Description: "Extracts text and tables from PDF documents",
					Version:     "1.2.0",
					Category:    "productivity",
					Path:        "agents/pdf_processor_agent",
					Tags:        []string{"pdf", "documents"},
					Features:    []string{"Text extraction", "Table extraction"},
				},
				Filename:     "pdf_processor_agent.py",
				Dependencies: []string{"PyPDF2"},
			},
		},
		Skills: []SkillEntry{
			{
				ItemMeta: ItemMeta{
					ID:          "mcp-builder",
					Type:        ItemTypeSkill,
					Name:        "MCP Builder",
					Description: "Guides building MCP servers",
					Version:     "1.0.0",
					Category:    "development",
					Path:        "skills/mcp-builder",
					Tags:        []string{"mcp", "development"},
				},
				Resources: &SkillResources{
					Scripts:    []string{"evaluation.py"},
					References: []string{"protocol.md"},
				},
			},
		},
	}
}

func marshalManifest(t *testing.T, m *StoreManifest) []byte {
	t.Helper()
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshaling manifest: %v", err)
	}
	return raw
}

// fakeFetcher serves canned responses keyed by URL and counts fetches.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     atomic.Int64

	// block, when set, is closed by the test to release in-flight fetches.
	block chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]byte),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) serve(url string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = data
	delete(f.errs, url)
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	delete(f.responses, url)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if data, ok := f.responses[url]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no response configured for %s", url)
}
