// Package client constructs the URLs a federation client exchanges with a
// store's static hosting layer.
package client

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBranch is assumed when a GitHub repository URL is given without a
// branch.
const DefaultBranch = "main"

// ManifestFileName is the discovery document every store serves at its raw
// content base.
const ManifestFileName = "manifest.json"

// ErrInvalidStoreURL is returned for store URLs that are neither an http(s)
// raw content base nor a GitHub repository URL.
var ErrInvalidStoreURL = errors.New("invalid store URL")

// NormalizeStoreURL canonicalizes a store address into a raw content base:
//
//   - https://github.com/{owner}/{repo} is rewritten to
//     https://raw.githubusercontent.com/{owner}/{repo}/main
//   - an http(s) URL is taken as the raw base itself, with any trailing
//     slash or /manifest.json suffix stripped
//
// The normalized form is the cache key, so two spellings of the same store
// address collapse to one entry.
func NormalizeStoreURL(storeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(storeURL))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidStoreURL, storeURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %s: scheme must be http or https", ErrInvalidStoreURL, storeURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidStoreURL, storeURL)
	}

	if u.Host == "github.com" {
		owner, repo, ok := splitRepoPath(u.Path)
		if !ok {
			return "", fmt.Errorf("%w: %s: expected https://github.com/owner/repo", ErrInvalidStoreURL, storeURL)
		}
		return RawContentURL(owner, repo, DefaultBranch), nil
	}

	base := strings.TrimRight(u.String(), "/")
	base = strings.TrimSuffix(base, "/"+ManifestFileName)
	return base, nil
}

// RawContentURL returns the raw content base for a GitHub repository branch.
func RawContentURL(owner, repo, branch string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", owner, repo, branch)
}

// ManifestURL returns the manifest address for a normalized raw content base.
func ManifestURL(rawBase string) string {
	return strings.TrimRight(rawBase, "/") + "/" + ManifestFileName
}

// splitRepoPath extracts owner and repo from a GitHub URL path, tolerating a
// trailing .git suffix and extra path components.
func splitRepoPath(p string) (owner, repo string, ok bool) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}
