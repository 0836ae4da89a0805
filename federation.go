// Package federation provides a client for discovering and aggregating
// agents and skills across RAPP Store repositories.
//
// A store is any raw content host serving a manifest.json describing its
// items. The client fetches and validates manifests, caches them with a
// TTL, resolves item content URLs, and aggregates items across any number
// of federated stores.
//
// Basic usage:
//
//	fed := federation.New()
//	if err := fed.Register(ctx, "https://github.com/kody-w/RAPP_Store"); err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := fed.Search(ctx, "pdf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, r := range results {
//		fmt.Println(r.Item.Meta().Name, r.Score)
//	}
package federation

import (
	"time"

	"github.com/rapp-store/federation/fetch"
	"github.com/rapp-store/federation/internal/core"
)

// Re-export types from internal/core
type (
	// StoreManifest is the parsed manifest.json of a single store.
	StoreManifest = core.StoreManifest

	// StoreInfo identifies a store and its owner.
	StoreInfo = core.StoreInfo

	// Protocol describes the discovery protocol a store speaks.
	Protocol = core.Protocol

	// Category is an entry of a store's category vocabulary.
	Category = core.Category

	// Item is the tagged union over agent and skill entries.
	Item = core.Item

	// ItemMeta holds the fields common to agents and skills.
	ItemMeta = core.ItemMeta

	// ItemType distinguishes agents from skills.
	ItemType = core.ItemType

	// AgentEntry is a manifest entry for a RAPP agent.
	AgentEntry = core.AgentEntry

	// SkillEntry is a manifest entry for a Claude skill.
	SkillEntry = core.SkillEntry

	// SkillResources lists the files bundled with a skill.
	SkillResources = core.SkillResources

	// ResourceKind names the bundles a skill can declare.
	ResourceKind = core.ResourceKind

	// CachedManifest is a manifest snapshot held by the cache.
	CachedManifest = core.CachedManifest

	// Cache holds fetched manifests keyed by store URL with TTL expiry.
	Cache = core.Cache

	// Federation tracks registered stores and aggregates their items.
	Federation = core.Federation

	// StoreItem pairs an item with the store it came from.
	StoreItem = core.StoreItem

	// ItemFilter narrows a listing by type, category, or tags.
	ItemFilter = core.ItemFilter

	// SearchResult is a matched item with its relevance score.
	SearchResult = core.SearchResult

	// StoreStatus summarizes one registered store.
	StoreStatus = core.StoreStatus

	// ItemContent is a downloaded item's content plus install path.
	ItemContent = core.ItemContent

	// Converter transforms items between agent and skill formats.
	Converter = core.Converter

	// AgentDescriptor is the agent-shaped result of converting a skill.
	AgentDescriptor = core.AgentDescriptor
)

// Re-export constants
const (
	ItemTypeAgent = core.ItemTypeAgent
	ItemTypeSkill = core.ItemTypeSkill

	ResourceScripts    = core.ResourceScripts
	ResourceReferences = core.ResourceReferences
	ResourceTemplates  = core.ResourceTemplates

	// DefaultTTL is the manifest freshness window unless overridden.
	DefaultTTL = core.DefaultTTL

	// SupportedProtocolMajor is the protocol major version this client speaks.
	SupportedProtocolMajor = core.SupportedProtocolMajor
)

// Re-export error categories and types
var (
	ErrNetwork                = core.ErrNetwork
	ErrInvalidManifest        = core.ErrInvalidManifest
	ErrResolution             = core.ErrResolution
	ErrConversion             = core.ErrConversion
	ErrNotFound               = core.ErrNotFound
	ErrStoreNotRegistered     = core.ErrStoreNotRegistered
	ErrStoreAlreadyRegistered = core.ErrStoreAlreadyRegistered
)

type (
	NetworkError               = core.NetworkError
	TimeoutError               = core.TimeoutError
	HTTPError                  = core.HTTPError
	ParseError                 = core.ParseError
	SchemaError                = core.SchemaError
	InvalidFieldError          = core.InvalidFieldError
	IncompatibleProtocolError  = core.IncompatibleProtocolError
	DuplicateItemError         = core.DuplicateItemError
	UnknownResourceError       = core.UnknownResourceError
	PathTraversalError         = core.PathTraversalError
	UnsupportedConversionError = core.UnsupportedConversionError
	ItemNotFoundError          = core.ItemNotFoundError
)

// ContentFetcher retrieves raw bytes from a URL.
type ContentFetcher = core.ContentFetcher

// Fetcher downloads documents from store hosting.
type Fetcher = fetch.Fetcher

// CircuitBreakerFetcher wraps a Fetcher with per-host circuit breakers.
type CircuitBreakerFetcher = fetch.CircuitBreakerFetcher

// config collects the options applied by New.
type config struct {
	ttl       time.Duration
	userAgent string
	timeout   time.Duration
	fetcher   ContentFetcher
}

// Option configures the federation built by New.
type Option func(*config)

// WithTTL sets the manifest cache freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithUserAgent sets the User-Agent for store requests.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout for store requests.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithFetcher replaces the default circuit-breaker-wrapped fetcher.
func WithFetcher(f ContentFetcher) Option {
	return func(c *config) {
		c.fetcher = f
	}
}

// New creates a Federation with sensible defaults: a DNS-cached fetcher
// with bounded retry, per-host circuit breaking, and a 1 hour manifest TTL.
func New(opts ...Option) *Federation {
	cfg := &config{
		ttl: core.DefaultTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.fetcher == nil {
		var fopts []fetch.Option
		if cfg.userAgent != "" {
			fopts = append(fopts, fetch.WithUserAgent(cfg.userAgent))
		}
		if cfg.timeout > 0 {
			fopts = append(fopts, fetch.WithTimeout(cfg.timeout))
		}
		cfg.fetcher = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fopts...))
	}

	cache := core.NewCache(cfg.fetcher, core.WithTTL(cfg.ttl))
	return core.NewFederation(cache, cfg.fetcher)
}

// NewCache creates a standalone manifest cache backed by the given fetcher.
func NewCache(fetcher ContentFetcher, ttl time.Duration) *Cache {
	return core.NewCache(fetcher, core.WithTTL(ttl))
}

// NewConverter creates a cross-format converter backed by the given fetcher.
func NewConverter(fetcher ContentFetcher) *Converter {
	return core.NewConverter(fetcher)
}

// ValidateManifest parses and validates raw manifest bytes.
func ValidateManifest(raw []byte) (*StoreManifest, error) {
	return core.ValidateManifest(raw)
}

// ResolveContentURL computes the fetch URL of an item's primary content.
func ResolveContentURL(m *StoreManifest, item Item) (string, error) {
	return core.ResolveContentURL(m, item)
}

// ResolveResourceURL computes the fetch URL of a skill's declared resource.
func ResolveResourceURL(m *StoreManifest, skill *SkillEntry, kind ResourceKind, filename string) (string, error) {
	return core.ResolveResourceURL(m, skill, kind, filename)
}
