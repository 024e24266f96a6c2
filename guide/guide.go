// Package guide provides the embedded documentation pages served by the
// docs plugin, the "vela docs" command and the vela_docs MCP tool.
package guide

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

//go:embed *.md
var files embed.FS

// ErrNotFound is returned for unknown page names.
var ErrNotFound = errors.New("guide page not found")

// Page is one parsed documentation page.
type Page struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Body    string   `json:"body"`
}

// Get returns the content of a guide page by name. If `name` is empty
// the overview page is returned.
func Get(name string) (string, error) {
	if name == "" {
		name = "guide"
	}
	data, err := files.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return string(data), nil
}

// List returns the available page names (without the .md suffix), the
// overview excluded.
func List() ([]string, error) {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if name != "guide.md" {
			names = append(names, strings.TrimSuffix(name, ".md"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Pages parses every page except the overview, sorted by name.
func Pages() ([]Page, error) {
	names, err := List()
	if err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(names))
	for _, name := range names {
		p, err := Load(name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// Load parses one page. The title is the first heading, an optional
// "Tags:" line lists search keywords and the summary is the first
// paragraph of prose.
func Load(name string) (Page, error) {
	body, err := Get(name)
	if err != nil {
		return Page{}, err
	}
	if name == "" {
		name = "guide"
	}
	p := Page{Name: name, Title: name, Body: body}

	var para []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "# ") && p.Title == name:
			p.Title = strings.TrimPrefix(line, "# ")
		case strings.HasPrefix(line, "Tags:"):
			p.Tags = strings.Fields(strings.TrimPrefix(line, "Tags:"))
		case line == "":
			if len(para) > 0 {
				p.Summary = strings.Join(para, " ")
				return p, nil
			}
		case p.Summary == "" && !strings.HasPrefix(line, "#"):
			para = append(para, line)
		}
	}
	p.Summary = strings.Join(para, " ")
	return p, nil
}
