package core

import (
	"fmt"
	"strings"
)

// ResourceKind names the three bundles a skill can declare.
type ResourceKind string

const (
	ResourceScripts    ResourceKind = "scripts"
	ResourceReferences ResourceKind = "references"
	ResourceTemplates  ResourceKind = "templates"
)

// SkillFileName is the primary definition file of a skill.
const SkillFileName = "SKILL.md"

// ResolveContentURL computes the fetch URL of an item's primary content: the
// agent's source file, or the skill's SKILL.md. Every path segment is
// normalized and checked against parent-directory references before joining.
func ResolveContentURL(m *StoreManifest, item Item) (string, error) {
	switch it := item.(type) {
	case *AgentEntry:
		return joinContentURL(m.Protocol.RawBase, it.Path, it.Filename)
	case *SkillEntry:
		return joinContentURL(m.Protocol.RawBase, it.Path, SkillFileName)
	default:
		return "", fmt.Errorf("unknown item type %T", item)
	}
}

// ResolveResourceURL computes the fetch URL of a skill's bundled resource.
// Only filenames declared in the entry's resource set resolve; anything else
// fails with UnknownResourceError so the resolver never guesses at
// undeclared files.
func ResolveResourceURL(m *StoreManifest, skill *SkillEntry, kind ResourceKind, filename string) (string, error) {
	if !declaresResource(skill, kind, filename) {
		return "", &UnknownResourceError{ItemID: skill.ID, Kind: kind, Filename: filename}
	}
	return joinContentURL(m.Protocol.RawBase, skill.Path, string(kind), filename)
}

func declaresResource(skill *SkillEntry, kind ResourceKind, filename string) bool {
	if skill.Resources == nil {
		return false
	}
	var declared []string
	switch kind {
	case ResourceScripts:
		declared = skill.Resources.Scripts
	case ResourceReferences:
		declared = skill.Resources.References
	case ResourceTemplates:
		declared = skill.Resources.Templates
	default:
		return false
	}
	for _, f := range declared {
		if f == filename {
			return true
		}
	}
	return false
}

// joinContentURL joins the raw base and path segments with exactly one "/"
// between parts, regardless of slash style in the inputs. Segments
// containing ".." are rejected to keep resolution inside the store's
// namespace.
func joinContentURL(rawBase string, segments ...string) (string, error) {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		for _, piece := range strings.Split(seg, "/") {
			switch piece {
			case "", ".":
				// collapse duplicate slashes and self references
			case "..":
				return "", &PathTraversalError{Segment: seg}
			default:
				parts = append(parts, piece)
			}
		}
	}
	return strings.TrimRight(rawBase, "/") + "/" + strings.Join(parts, "/"), nil
}
