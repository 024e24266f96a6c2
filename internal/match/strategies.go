// strategies.go implements the four built-in matcher strategies.

package match

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Charset matches queries made up entirely of characters drawn from the
// trigger, e.g. arithmetic expressions against "0123456789+-*/().".
// Whitespace in the query is ignored.
type Charset struct {
	set map[rune]struct{}
}

// NewCharset returns a character-set matcher over the runes of trigger.
func NewCharset(trigger string) *Charset {
	set := make(map[rune]struct{}, len(trigger))
	for _, r := range trigger {
		set[r] = struct{}{}
	}
	return &Charset{set: set}
}

func (c *Charset) CanHandle(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	for _, r := range q {
		if unicode.IsSpace(r) {
			continue
		}
		if _, ok := c.set[r]; !ok {
			return false
		}
	}
	return true
}

func (c *Charset) Match(query string) *CommandMatch {
	if !c.CanHandle(query) {
		return nil
	}
	return &CommandMatch{
		Confidence: CharsetConfidence,
		Args:       map[string]any{ArgInput: strings.TrimSpace(query)},
	}
}

// Prefix matches queries starting with the trigger, case-insensitively.
// The trimmed remainder becomes the input argument.
type Prefix struct {
	trigger string
}

// NewPrefix returns a prefix matcher for trigger.
func NewPrefix(trigger string) *Prefix {
	return &Prefix{trigger: strings.ToLower(trigger)}
}

func (p *Prefix) CanHandle(query string) bool {
	return p.trigger != "" && strings.HasPrefix(strings.ToLower(query), p.trigger)
}

func (p *Prefix) Match(query string) *CommandMatch {
	if !p.CanHandle(query) {
		return nil
	}
	// Lower-casing can change byte length for some runes, so cut by rune
	// count rather than by len(p.trigger).
	rest := string([]rune(query)[len([]rune(p.trigger)):])
	return &CommandMatch{
		Confidence: PrefixConfidence,
		Args:       map[string]any{ArgInput: strings.TrimSpace(rest)},
	}
}

// FuzzyThreshold is the largest accepted distance, exclusive.
const FuzzyThreshold = 0.6

// Fuzzy matches queries within a normalised edit distance of the target.
type Fuzzy struct {
	target string
}

// NewFuzzy returns a fuzzy matcher against target.
func NewFuzzy(target string) *Fuzzy {
	return &Fuzzy{target: target}
}

func (f *Fuzzy) score(query string) (float64, bool) {
	q := strings.TrimSpace(query)
	if q == "" || f.target == "" {
		return 1, false
	}
	d := Distance(q, f.target)
	return d, d < FuzzyThreshold
}

func (f *Fuzzy) CanHandle(query string) bool {
	_, ok := f.score(query)
	return ok
}

func (f *Fuzzy) Match(query string) *CommandMatch {
	d, ok := f.score(query)
	if !ok {
		return nil
	}
	return &CommandMatch{
		Confidence: int(math.Round((1 - d) * 100)),
		Args:       map[string]any{ArgInput: ""},
	}
}

// Pattern matches a regular expression. Named groups become arguments under
// their names; unnamed groups under their position ("1", "2", ...).
type Pattern struct {
	re         *regexp.Regexp
	confidence int
}

// NewPattern compiles expr. A confidence of zero selects PatternConfidence.
func NewPattern(expr string, confidence int) (*Pattern, error) {
	if expr == "" {
		return nil, fmt.Errorf("pattern matcher: empty expression")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern matcher: %w", err)
	}
	if confidence <= 0 {
		confidence = PatternConfidence
	}
	if confidence > 100 {
		confidence = 100
	}
	return &Pattern{re: re, confidence: confidence}, nil
}

// MustPattern is like NewPattern but panics on error. Intended for
// package-level matcher tables in plugins.
func MustPattern(expr string, confidence int) *Pattern {
	p, err := NewPattern(expr, confidence)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) CanHandle(query string) bool {
	return p.re.MatchString(query)
}

func (p *Pattern) Match(query string) *CommandMatch {
	sub := p.re.FindStringSubmatch(query)
	if sub == nil {
		return nil
	}
	args := make(map[string]any, len(sub))
	for i, name := range p.re.SubexpNames() {
		if i == 0 {
			continue
		}
		if name == "" {
			name = strconv.Itoa(i)
		}
		args[name] = sub[i]
	}
	return &CommandMatch{Confidence: p.confidence, Args: args}
}
