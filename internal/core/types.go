// Package core provides the shared types, validation, resolution, caching,
// and federation logic for RAPP Store clients.
package core

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// ItemType distinguishes the two kinds of items a store can list.
type ItemType string

const (
	// ItemTypeAgent is a RAPP agent: a single source file plus metadata.
	ItemTypeAgent ItemType = "agent"
	// ItemTypeSkill is a Claude skill: a SKILL.md document with optional
	// bundled resources.
	ItemTypeSkill ItemType = "skill"
)

// StoreManifest is the parsed manifest.json of a single store.
//
// Unknown fields in the wire document are ignored for forward compatibility;
// only the fields below round-trip through serialization.
type StoreManifest struct {
	SchemaVersion string       `json:"version"`
	Store         StoreInfo    `json:"store"`
	Protocol      Protocol     `json:"protocol"`
	Categories    []Category   `json:"categories,omitempty"`
	Agents        []AgentEntry `json:"agents,omitempty"`
	Skills        []SkillEntry `json:"skills,omitempty"`
}

// StoreInfo identifies the store and its owner.
type StoreInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	URL         string `json:"url"`
	License     string `json:"license"`
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
}

// Protocol describes the discovery protocol a store speaks.
type Protocol struct {
	Version           string     `json:"version"`
	Supports          []ItemType `json:"supports"`
	DiscoveryEndpoint string     `json:"discovery_endpoint"`
	RawBase           string     `json:"raw_base"`
}

// Category is an entry of a store's open category vocabulary.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// ItemMeta holds the fields common to agent and skill entries.
type ItemMeta struct {
	ID          string   `json:"id"`
	Type        ItemType `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Category    string   `json:"category"`
	Author      string   `json:"author,omitempty"`
	License     string   `json:"license,omitempty"`
	Path        string   `json:"path"`
	Icon        string   `json:"icon,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// Item is the tagged union over agent and skill entries. The resolver and
// converter switch on the concrete type; Meta gives uniform access to the
// shared fields.
type Item interface {
	Meta() *ItemMeta
}

// AgentEntry is a manifest entry for a RAPP agent.
type AgentEntry struct {
	ItemMeta
	Filename          string   `json:"filename"`
	Dependencies      []string `json:"dependencies,omitempty"`
	MinRuntimeVersion string   `json:"min_runtime_version,omitempty"`
}

// Meta implements Item.
func (a *AgentEntry) Meta() *ItemMeta { return &a.ItemMeta }

// CompatibleWith reports whether the agent runs on the given runtime version.
// Agents without a min_runtime_version are compatible with everything.
func (a *AgentEntry) CompatibleWith(runtimeVersion string) bool {
	if a.MinRuntimeVersion == "" {
		return true
	}
	min, err := semver.NewVersion(a.MinRuntimeVersion)
	if err != nil {
		return true
	}
	rt, err := semver.NewVersion(runtimeVersion)
	if err != nil {
		return false
	}
	return !rt.LessThan(min)
}

// SkillEntry is a manifest entry for a Claude skill.
type SkillEntry struct {
	ItemMeta
	Resources *SkillResources `json:"resources,omitempty"`
}

// Meta implements Item.
func (s *SkillEntry) Meta() *ItemMeta { return &s.ItemMeta }

// SkillResources lists the files bundled with a skill, by kind.
// Only files declared here are resolvable.
type SkillResources struct {
	Scripts    []string `json:"scripts,omitempty"`
	References []string `json:"references,omitempty"`
	Templates  []string `json:"templates,omitempty"`
}

// CachedManifest is a manifest snapshot held by the Cache. Get returns it by
// value so callers never observe a half-updated entry.
type CachedManifest struct {
	Manifest  *StoreManifest
	FetchedAt time.Time
	TTL       time.Duration

	// Stale and RefreshErr are set when a refresh failed and the cache
	// served the previous entry instead.
	Stale      bool
	RefreshErr error
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (c *CachedManifest) Expired(now time.Time) bool {
	return now.Sub(c.FetchedAt) >= c.TTL
}
