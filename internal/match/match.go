// Package match implements the strategies that decide whether a typed query
// invokes a command and with what confidence.
//
// Four strategies exist: character-set, prefix, fuzzy and pattern. Plugins
// may supply their own matchers; otherwise Default derives them from the
// command's trigger using a small heuristic (see IsCharsetTrigger).
package match

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ArgInput is the argument key carrying free text left over after a match,
// such as the remainder after a prefix trigger.
const ArgInput = "input"

// Fixed confidences for the built-in strategies.
const (
	PrefixConfidence  = 100
	CharsetConfidence = 90
	PatternConfidence = 80
)

// ErrUnknownKind is returned by Build for an unrecognised matcher kind.
var ErrUnknownKind = errors.New("unknown matcher kind")

// CommandMatch is the ephemeral result of matching one query against one
// command. CommandID is filled in by the command registry with the
// command's object id.
type CommandMatch struct {
	Confidence int            `json:"confidence"`
	CommandID  string         `json:"command_id"`
	Args       map[string]any `json:"args"`
}

// Input returns the free-text argument of the match, or "".
func (m *CommandMatch) Input() string {
	if m == nil {
		return ""
	}
	s, _ := m.Args[ArgInput].(string)
	return s
}

// Matcher decides whether a query hits a command.
type Matcher interface {
	// CanHandle reports whether Match would return a non-nil result.
	CanHandle(query string) bool
	// Match returns the match for query, or nil on a miss.
	Match(query string) *CommandMatch
}

// Kind names a matcher strategy in manifests.
type Kind string

const (
	KindAuto    Kind = ""
	KindPrefix  Kind = "prefix"
	KindCharset Kind = "charset"
	KindFuzzy   Kind = "fuzzy"
	KindPattern Kind = "pattern"
)

// Default derives the matchers for a command that declares none. Operator
// style triggers get a single character-set matcher; word triggers get a
// prefix matcher on the trigger plus a fuzzy matcher on the display name.
func Default(trigger, name string) []Matcher {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		if name == "" {
			return nil
		}
		return []Matcher{NewFuzzy(name)}
	}
	if IsCharsetTrigger(trigger) {
		return []Matcher{NewCharset(trigger)}
	}
	ms := []Matcher{NewPrefix(trigger)}
	if name != "" {
		ms = append(ms, NewFuzzy(name))
	}
	return ms
}

// Build constructs matchers for an explicitly declared kind, bypassing the
// trigger heuristic. KindAuto falls back to Default.
func Build(kind Kind, trigger, name, pattern string, confidence int) ([]Matcher, error) {
	switch kind {
	case KindAuto:
		return Default(trigger, name), nil
	case KindPrefix:
		return []Matcher{NewPrefix(trigger)}, nil
	case KindCharset:
		return []Matcher{NewCharset(trigger)}, nil
	case KindFuzzy:
		target := trigger
		if target == "" {
			target = name
		}
		return []Matcher{NewFuzzy(target)}, nil
	case KindPattern:
		p, err := NewPattern(pattern, confidence)
		if err != nil {
			return nil, err
		}
		return []Matcher{p}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// IsCharsetTrigger reports whether trigger looks like an operator alphabet
// rather than a word: at least five runes, and either symbols mixed with
// digits or letters, or fewer than half of the runes distinct.
func IsCharsetTrigger(trigger string) bool {
	runes := []rune(trigger)
	if len(runes) < 5 {
		return false
	}

	var digit, letter, symbol bool
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		seen[r] = struct{}{}
		switch {
		case unicode.IsSpace(r):
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		default:
			symbol = true
		}
	}

	mixed := (digit && symbol) || (letter && symbol)
	ratio := float64(len(seen)) / float64(len(runes))
	return mixed || ratio < 0.5
}
