package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rapp-store/federation/skilldoc"
)

// Converter transforms item descriptors between the agent and skill
// formats. Both directions are metadata and document transformations; no
// downloaded code is ever executed.
type Converter struct {
	fetcher ContentFetcher
}

// NewConverter creates a converter. The fetcher is only used by
// SkillToAgent to retrieve the skill's SKILL.md.
func NewConverter(fetcher ContentFetcher) *Converter {
	return &Converter{fetcher: fetcher}
}

// AgentToSkill renders a skill document from an agent's metadata: YAML
// frontmatter with name and description, and a body describing the agent's
// declared capabilities as prose. The agent's source is never fetched or
// inlined.
func (c *Converter) AgentToSkill(agent *AgentEntry) (string, error) {
	if agent.Description == "" {
		return "", &UnsupportedConversionError{ItemID: agent.ID, Missing: "description"}
	}

	var body strings.Builder
	fmt.Fprintf(&body, "# %s\n\n%s\n", agent.Name, agent.Description)

	if len(agent.Features) > 0 {
		body.WriteString("\n## Features\n\n")
		for _, feature := range agent.Features {
			fmt.Fprintf(&body, "- %s\n", feature)
		}
	}

	if len(agent.Dependencies) > 0 {
		body.WriteString("\n## Dependencies\n\n")
		for _, dep := range agent.Dependencies {
			fmt.Fprintf(&body, "- %s\n", dep)
		}
	}

	body.WriteString("\n## Usage\n\n")
	fmt.Fprintf(&body, "This skill provides guidance for %s tasks.\n", strings.ToLower(agent.Name))

	fmt.Fprintf(&body, "\n## Original Source\n\n")
	fmt.Fprintf(&body, "- **Type:** Agent\n")
	fmt.Fprintf(&body, "- **Version:** %s\n", agent.Version)
	fmt.Fprintf(&body, "- **Category:** %s\n", agent.Category)
	if agent.Author != "" {
		fmt.Fprintf(&body, "- **Author:** %s\n", agent.Author)
	}
	if agent.License != "" {
		fmt.Fprintf(&body, "- **License:** %s\n", agent.License)
	}

	return skilldoc.Compose(skilldoc.Metadata{
		Name:        agent.ID,
		Description: agent.Description,
	}, body.String())
}

// AgentDescriptor is the agent-shaped result of converting a skill. Its
// Perform contract is to return the skill's instructional text as guidance;
// it never executes skill scripts.
type AgentDescriptor struct {
	ID          string
	Name        string
	Description string
	Version     string
	Category    string
	Tags        []string
	Features    []string
	Filename    string
	Body        string
}

// Perform returns the skill body as guidance text, verbatim.
func (d *AgentDescriptor) Perform() string { return d.Body }

// SkillToAgent fetches the skill's SKILL.md and produces an agent-shaped
// descriptor backed by the skill's instructional text. The skill's
// frontmatter must carry name and description.
func (c *Converter) SkillToAgent(ctx context.Context, skill *SkillEntry, m *StoreManifest) (*AgentDescriptor, error) {
	contentURL, err := ResolveContentURL(m, skill)
	if err != nil {
		return nil, err
	}

	raw, err := c.fetcher.Fetch(ctx, contentURL)
	if err != nil {
		return nil, err
	}

	doc, err := skilldoc.Parse(raw)
	if err != nil {
		if errors.Is(err, skilldoc.ErrNoFrontmatter) {
			return nil, &UnsupportedConversionError{ItemID: skill.ID, Missing: "frontmatter"}
		}
		// Malformed frontmatter is a broken document, not a conversion
		// the skill cannot support.
		return nil, &ParseError{Err: err}
	}
	if doc.Name == "" {
		return nil, &UnsupportedConversionError{ItemID: skill.ID, Missing: "name"}
	}
	if doc.Description == "" {
		return nil, &UnsupportedConversionError{ItemID: skill.ID, Missing: "description"}
	}

	return &AgentDescriptor{
		ID:          skill.ID,
		Name:        skill.Name,
		Description: doc.Description,
		Version:     skill.Version,
		Category:    skill.Category,
		Tags:        append([]string(nil), skill.Tags...),
		Features:    append([]string(nil), skill.Features...),
		Filename:    fmt.Sprintf("%s_agent.py", skill.ID),
		Body:        doc.Body,
	}, nil
}

// ConvertItem dispatches by item kind toward the requested target format.
// Converting an item to its own format is refused; there is nothing to
// transform.
func (f *Federation) ConvertItem(ctx context.Context, id string, target ItemType) (skillDoc string, agent *AgentDescriptor, err error) {
	si, m, err := f.lookup(ctx, id)
	if err != nil {
		return "", nil, err
	}

	conv := NewConverter(f.fetcher)
	switch target {
	case ItemTypeSkill:
		a, ok := si.Item.(*AgentEntry)
		if !ok {
			return "", nil, &UnsupportedConversionError{ItemID: id, Missing: "agent source entry"}
		}
		doc, err := conv.AgentToSkill(a)
		return doc, nil, err
	case ItemTypeAgent:
		s, ok := si.Item.(*SkillEntry)
		if !ok {
			return "", nil, &UnsupportedConversionError{ItemID: id, Missing: "skill source entry"}
		}
		desc, err := conv.SkillToAgent(ctx, s, m)
		return "", desc, err
	default:
		return "", nil, fmt.Errorf("%w: unknown target format %q", ErrConversion, target)
	}
}
