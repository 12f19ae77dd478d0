package discovery

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/uriel-frankel/android-code-coverage/internal/errs"
)

// DefaultExcludes are the patterns for generated Android classes and
// test classes.
var DefaultExcludes = []string{
	"**/R.class",
	"**/R$*.class",
	"**/BuildConfig.*",
	"**/Manifest*.*",
	"**/*Test*.*",
	"android/**/*.*",
}

// Matcher matches slash separated paths against a list of glob
// patterns. `*` matches within one path segment, `**` across segments.
type Matcher struct {
	patterns []string
}

// NewMatcher validates the patterns and returns a matcher for them.
func NewMatcher(patterns []string) (*Matcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errs.NewConfigurationError("exclude", "malformed exclusion pattern %q", p)
		}
	}
	return &Matcher{patterns: append([]string(nil), patterns...)}, nil
}

// Patterns returns a copy of the patterns in their original order.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Match returns true if rel matches at least one of the patterns.
func (m *Matcher) Match(rel string) bool {
	_, ok := m.MatchingPattern(rel)
	return ok
}

// MatchingPattern returns the first pattern matching rel.
func (m *Matcher) MatchingPattern(rel string) (string, bool) {
	for _, p := range m.patterns {
		// the patterns were validated, so errors can't occur
		if ok, _ := doublestar.Match(p, rel); ok {
			return p, true
		}
	}
	return "", false
}
