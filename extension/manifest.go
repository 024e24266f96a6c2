// manifest.go defines the plugin manifest and its validation.
//
// Separated from extension.go because manifests are data: the loader
// parses them for filesystem plugins and built-ins embed them, and both go
// through the same ParseManifest so the rules cannot drift apart.
//
// Design: YAML is a superset of JSON, so manifest.json and manifest.yaml are
// both parsed with yaml.v3. Field names are camelCase in both formats.

package extension

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/jpl-au/vela/internal/match"
	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned for manifests that fail to parse or validate.
var ErrInvalidManifest = errors.New("invalid manifest")

// Plugin types.
const (
	TypeResult = "result"
	TypeView   = "view"
)

// Command result types.
const (
	ResultTypeResult = "result"
	ResultTypeInline = "inline"
	ResultTypeView   = "view"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Manifest describes a plugin. It is immutable once loaded.
type Manifest struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Version     string        `yaml:"version" json:"version"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Type        string        `yaml:"type,omitempty" json:"type,omitempty"`
	Icon        string        `yaml:"icon,omitempty" json:"icon,omitempty"`
	Commands    []CommandSpec `yaml:"commands,omitempty" json:"commands,omitempty"`
	Views       []string      `yaml:"views,omitempty" json:"views,omitempty"`
	DefaultView string        `yaml:"defaultView,omitempty" json:"defaultView,omitempty"`
	Searchable  bool          `yaml:"searchable,omitempty" json:"searchable,omitempty"`
	// Main is the script entry point of a filesystem plugin, relative to
	// the plugin directory.
	Main string `yaml:"main,omitempty" json:"main,omitempty"`
}

// CommandSpec declares one command.
type CommandSpec struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Trigger     string `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	ResultType  string `yaml:"resultType,omitempty" json:"resultType,omitempty"`
	// Matcher overrides the strategy derived from Trigger.
	Matcher    string `yaml:"matcher,omitempty" json:"matcher,omitempty"`
	Pattern    string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Confidence int    `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks required fields and fills defaults.
func (m *Manifest) Validate() error {
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: id %q must be lower-case letters, digits and dashes", ErrInvalidManifest, m.ID)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidManifest, m.ID)
	}

	switch m.Type {
	case "":
		m.Type = TypeResult
	case TypeResult, TypeView:
	default:
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalidManifest, m.ID, m.Type)
	}

	if m.Type == TypeView && len(m.Views) == 0 {
		return fmt.Errorf("%w: %s: view plugins must declare at least one view", ErrInvalidManifest, m.ID)
	}
	if m.DefaultView == "" && len(m.Views) > 0 {
		m.DefaultView = m.Views[0]
	}
	if m.DefaultView != "" && !slices.Contains(m.Views, m.DefaultView) {
		return fmt.Errorf("%w: %s: default view %q is not declared", ErrInvalidManifest, m.ID, m.DefaultView)
	}

	seen := make(map[string]bool, len(m.Commands))
	for i := range m.Commands {
		c := &m.Commands[i]
		if c.ID == "" {
			return fmt.Errorf("%w: %s: command %d has no id", ErrInvalidManifest, m.ID, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: %s: duplicate command %q", ErrInvalidManifest, m.ID, c.ID)
		}
		seen[c.ID] = true
		if c.Name == "" {
			c.Name = c.ID
		}
		if c.ResultType == "" {
			c.ResultType = ResultTypeResult
		}
		if _, err := c.BuildMatchers(); err != nil {
			return fmt.Errorf("%w: %s: command %q: %v", ErrInvalidManifest, m.ID, c.ID, err)
		}
	}
	return nil
}

// ViewPath joins the plugin id and a view name.
func (m Manifest) ViewPath(view string) string {
	return m.ID + "/" + view
}

// Keywords returns the command triggers, in declaration order.
func (m Manifest) Keywords() []string {
	var out []string
	for _, c := range m.Commands {
		if c.Trigger != "" {
			out = append(out, c.Trigger)
		}
	}
	return out
}

// Command returns the declaration of commandID.
func (m Manifest) Command(commandID string) (CommandSpec, bool) {
	for _, c := range m.Commands {
		if c.ID == commandID {
			return c, true
		}
	}
	return CommandSpec{}, false
}

// BuildMatchers constructs the command's matchers from its declaration.
func (c CommandSpec) BuildMatchers() ([]match.Matcher, error) {
	return match.Build(match.Kind(c.Matcher), c.Trigger, c.Name, c.Pattern, c.Confidence)
}
