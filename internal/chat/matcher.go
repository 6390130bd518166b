package chat

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var matcherTracer = otel.Tracer("sisarm/chat")

// typoCorrections maps a whole normalized message to its corrected form.
// Applied after normalization, before any rule matching.
var typoCorrections = map[string]string{
	"ola":     "hola",
	"ta bien": "esta bien",
	"gracais": "gracias",
	"jeje":    "riendo",
	"nose":    "no se",
	"xd":      "riendo",
	"lol":     "riendo",
}

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips accents and collapses whitespace runs.
func Normalize(text string) string {
	if stripped, _, err := transform.String(accentStripper, text); err == nil {
		text = stripped
	}
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// CorrectTypos rewrites a handful of messages users actually type.
func CorrectTypos(normalized string) string {
	if fixed, ok := typoCorrections[normalized]; ok {
		return fixed
	}
	return normalized
}

type compiledPattern struct {
	re      *regexp.Regexp // nil means literal substring search
	literal string
	length  int
}

type compiledRule struct {
	patterns []compiledPattern
	response string
	menu     int
}

// Matcher scores a normalized message against an injected rule table and
// returns the best match. It holds no mutable state and is safe for
// concurrent use.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles the rule table once. Patterns that are not valid
// regular expressions degrade to substring search instead of failing.
func NewMatcher(rules []Rule) *Matcher {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{response: r.Response, menu: r.MenuOption}
		for _, p := range r.Patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			cp := compiledPattern{literal: p, length: len(p)}
			if re, err := regexp.Compile(p); err == nil {
				cp.re = re
			}
			cr.patterns = append(cr.patterns, cp)
		}
		compiled = append(compiled, cr)
	}
	return &Matcher{rules: compiled}
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Match resolves a normalized message to a rule response. A digit-only
// message is a menu selection and bypasses pattern scoring; anything else
// takes the longest matching pattern across all rules, first rule winning
// ties. The boolean reports whether anything matched.
func (m *Matcher) Match(ctx context.Context, normalized string) (string, bool) {
	_, span := matcherTracer.Start(ctx, "chat.match")
	defer span.End()

	normalized = strings.TrimSpace(normalized)
	if digitsOnly.MatchString(normalized) {
		span.SetAttributes(attribute.Bool("chat.menu_input", true))
		return m.matchMenu(normalized)
	}

	best := ""
	bestScore := 0
	for _, rule := range m.rules {
		for _, p := range rule.patterns {
			matched := false
			if p.re != nil {
				matched = p.re.MatchString(normalized)
			} else {
				matched = strings.Contains(normalized, p.literal)
			}
			if matched && p.length > bestScore {
				bestScore = p.length
				best = rule.response
			}
		}
	}
	span.SetAttributes(attribute.Int("chat.match_score", bestScore))
	return best, bestScore > 0
}

func (m *Matcher) matchMenu(digits string) (string, bool) {
	n, err := strconv.Atoi(digits)
	if err == nil {
		for _, rule := range m.rules {
			if rule.menu == n {
				return rule.response, true
			}
		}
	}
	return InvalidOptionResponse, true
}
