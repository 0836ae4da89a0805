package core

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rapp-store/federation/client"
)

// Federation tracks a set of registered stores and aggregates their items.
// Iteration order is registration order, preserved across browse operations.
// A Federation is owned by the caller's session; multiple independent
// federations can coexist in one process.
type Federation struct {
	cache   *Cache
	fetcher ContentFetcher

	mu     sync.RWMutex
	stores []string // normalized store URLs, insertion order
}

// NewFederation creates a federation backed by the given cache. The fetcher
// is used for item content downloads and is normally the same one feeding
// the cache.
func NewFederation(cache *Cache, fetcher ContentFetcher) *Federation {
	return &Federation{cache: cache, fetcher: fetcher}
}

// Register adds a store after validating it is reachable and serves a valid
// manifest. On any failure the store is not added, so the federation never
// holds a store in an unusable state.
func (f *Federation) Register(ctx context.Context, storeURL string) error {
	key, err := client.NormalizeStoreURL(storeURL)
	if err != nil {
		return err
	}

	f.mu.RLock()
	registered := f.contains(key)
	f.mu.RUnlock()
	if registered {
		return fmt.Errorf("%w: %s", ErrStoreAlreadyRegistered, key)
	}

	if _, err := f.cache.Get(ctx, key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contains(key) {
		return fmt.Errorf("%w: %s", ErrStoreAlreadyRegistered, key)
	}
	f.stores = append(f.stores, key)
	return nil
}

// Unregister removes a store and drops its cached manifest.
func (f *Federation) Unregister(storeURL string) error {
	key, err := client.NormalizeStoreURL(storeURL)
	if err != nil {
		return err
	}

	f.mu.Lock()
	idx := -1
	for i, s := range f.stores {
		if s == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStoreNotRegistered, key)
	}
	f.stores = append(f.stores[:idx], f.stores[idx+1:]...)
	f.mu.Unlock()

	f.cache.Invalidate(key)
	return nil
}

// StoreURLs returns the registered store URLs in registration order.
func (f *Federation) StoreURLs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.stores...)
}

func (f *Federation) contains(key string) bool {
	for _, s := range f.stores {
		if s == key {
			return true
		}
	}
	return false
}

// StoreItem pairs an item with the store it came from.
type StoreItem struct {
	StoreURL string
	Item     Item
}

// ItemFilter narrows a listing. Zero-valued fields match everything; Tags
// is a subset match (every filter tag must appear on the item).
type ItemFilter struct {
	Type     ItemType
	Category string
	Tags     []string
}

func (f *ItemFilter) matches(item Item) bool {
	if f == nil {
		return true
	}
	meta := item.Meta()
	if f.Type != "" && itemType(item) != f.Type {
		return false
	}
	if f.Category != "" && meta.Category != f.Category {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range meta.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// itemType derives the kind from the union tag rather than trusting the
// optional wire field.
func itemType(item Item) ItemType {
	switch item.(type) {
	case *AgentEntry:
		return ItemTypeAgent
	default:
		return ItemTypeSkill
	}
}

// ListItems aggregates items from all registered stores in registration
// order, agents before skills within each manifest, both in manifest array
// order. Any store error aborts the listing; a partial result would mask
// the failure.
func (f *Federation) ListItems(ctx context.Context, filter *ItemFilter) ([]StoreItem, error) {
	var items []StoreItem
	for _, storeURL := range f.StoreURLs() {
		cm, err := f.cache.Get(ctx, storeURL)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", storeURL, err)
		}
		m := cm.Manifest
		for i := range m.Agents {
			if filter.matches(&m.Agents[i]) {
				items = append(items, StoreItem{StoreURL: storeURL, Item: &m.Agents[i]})
			}
		}
		for i := range m.Skills {
			if filter.matches(&m.Skills[i]) {
				items = append(items, StoreItem{StoreURL: storeURL, Item: &m.Skills[i]})
			}
		}
	}
	return items, nil
}

// SearchResult is a matched item with its relevance score.
type SearchResult struct {
	StoreItem
	Score int
}

// Search matches the query case-insensitively against name, tags, and
// description. Scoring is a weighted count: name 3, tag 2, description 1.
// Ties keep registration order then array order, so results are
// deterministic.
func (f *Federation) Search(ctx context.Context, query string) ([]SearchResult, error) {
	items, err := f.ListItems(ctx, nil)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	var results []SearchResult
	for _, si := range items {
		if score := relevance(si.Item.Meta(), q); score > 0 {
			results = append(results, SearchResult{StoreItem: si, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func relevance(meta *ItemMeta, q string) int {
	score := 0
	if strings.Contains(strings.ToLower(meta.Name), q) {
		score += 3
	}
	for _, tag := range meta.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += 2
			break
		}
	}
	if strings.Contains(strings.ToLower(meta.Description), q) {
		score++
	}
	return score
}

// Item finds an item by ID across stores in registration order. The first
// match wins.
func (f *Federation) Item(ctx context.Context, id string) (StoreItem, error) {
	si, _, err := f.lookup(ctx, id)
	return si, err
}

func (f *Federation) lookup(ctx context.Context, id string) (StoreItem, *StoreManifest, error) {
	for _, storeURL := range f.StoreURLs() {
		cm, err := f.cache.Get(ctx, storeURL)
		if err != nil {
			return StoreItem{}, nil, fmt.Errorf("store %s: %w", storeURL, err)
		}
		m := cm.Manifest
		for i := range m.Agents {
			if m.Agents[i].ID == id {
				return StoreItem{StoreURL: storeURL, Item: &m.Agents[i]}, m, nil
			}
		}
		for i := range m.Skills {
			if m.Skills[i].ID == id {
				return StoreItem{StoreURL: storeURL, Item: &m.Skills[i]}, m, nil
			}
		}
	}
	return StoreItem{}, nil, &ItemNotFoundError{ID: id}
}

// Categories aggregates the category vocabularies of all registered stores,
// de-duplicated by ID in first-seen order.
func (f *Federation) Categories(ctx context.Context) ([]Category, error) {
	seen := make(map[string]struct{})
	var categories []Category
	for _, storeURL := range f.StoreURLs() {
		cm, err := f.cache.Get(ctx, storeURL)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", storeURL, err)
		}
		for _, cat := range cm.Manifest.Categories {
			if _, dup := seen[cat.ID]; dup {
				continue
			}
			seen[cat.ID] = struct{}{}
			categories = append(categories, cat)
		}
	}
	return categories, nil
}

// StoreStatus summarizes one registered store for listings. Err is set when
// the store's manifest could not be served, so a broken store still shows
// up instead of vanishing from the list.
type StoreStatus struct {
	URL        string
	Name       string
	AgentCount int
	SkillCount int
	Stale      bool
	Err        error
}

// Stores reports every registered store in registration order.
func (f *Federation) Stores(ctx context.Context) []StoreStatus {
	var statuses []StoreStatus
	for _, storeURL := range f.StoreURLs() {
		status := StoreStatus{URL: storeURL}
		cm, err := f.cache.Get(ctx, storeURL)
		if err != nil {
			status.Err = err
		} else {
			status.Name = cm.Manifest.Store.Name
			status.AgentCount = len(cm.Manifest.Agents)
			status.SkillCount = len(cm.Manifest.Skills)
			status.Stale = cm.Stale
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// ItemContent is a downloaded item's primary content plus the path it
// should be installed under.
type ItemContent struct {
	StoreURL    string
	URL         string
	InstallPath string
	Data        []byte
}

// FetchItemContent downloads an item's primary content: the agent source
// file or the skill's SKILL.md.
func (f *Federation) FetchItemContent(ctx context.Context, id string) (*ItemContent, error) {
	si, m, err := f.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	contentURL, err := ResolveContentURL(m, si.Item)
	if err != nil {
		return nil, err
	}

	data, err := f.fetcher.Fetch(ctx, contentURL)
	if err != nil {
		return nil, err
	}

	var installPath string
	switch it := si.Item.(type) {
	case *AgentEntry:
		installPath = path.Join("agents", it.ID, it.Filename)
	case *SkillEntry:
		installPath = path.Join("skills", it.ID, SkillFileName)
	}

	return &ItemContent{
		StoreURL:    si.StoreURL,
		URL:         contentURL,
		InstallPath: installPath,
		Data:        data,
	}, nil
}

// FetchSkillResource downloads one of a skill's declared bundled resources.
func (f *Federation) FetchSkillResource(ctx context.Context, id string, kind ResourceKind, filename string) (*ItemContent, error) {
	si, m, err := f.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	skill, ok := si.Item.(*SkillEntry)
	if !ok {
		return nil, &UnknownResourceError{ItemID: id, Kind: kind, Filename: filename}
	}

	resourceURL, err := ResolveResourceURL(m, skill, kind, filename)
	if err != nil {
		return nil, err
	}

	data, err := f.fetcher.Fetch(ctx, resourceURL)
	if err != nil {
		return nil, err
	}

	return &ItemContent{
		StoreURL:    si.StoreURL,
		URL:         resourceURL,
		InstallPath: path.Join("skills", skill.ID, string(kind), filename),
		Data:        data,
	}, nil
}
