package flavour

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// ErrUnknownFlavour is returned by ForProvider for an unrecognised provider
var ErrUnknownFlavour = errors.New("unknown flavour")

var registry = map[string]func() DifferFlavour{
	"postgresql":  NewPostgresFlavour,
	"postgres":    NewPostgresFlavour,
	"cockroachdb": NewCockroachFlavour,
	"cockroach":   NewCockroachFlavour,
	"mysql":       NewMySQLFlavour,
	"sqlite":      NewSQLiteFlavour,
	"sqlite3":     NewSQLiteFlavour,
}

// ForProvider returns the flavour for a datasource provider name
func ForProvider(provider string) (DifferFlavour, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFlavour, provider, strings.Join(Providers(), ", "))
	}
	return ctor(), nil
}

// Providers returns the accepted provider names, sorted
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IgnoreMatcher matches table names against user glob patterns
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher validates patterns in path.Match syntax
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match reports whether the table name or its qualified form matches a pattern.
// A nil matcher matches nothing.
func (m *IgnoreMatcher) Match(schema, name string) bool {
	if m == nil {
		return false
	}
	qualified := name
	if schema != "" {
		qualified = schema + "." + name
	}
	for _, p := range m.patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
		if ok, _ := path.Match(p, qualified); ok {
			return true
		}
	}
	return false
}

// Patterns returns the validated patterns
func (m *IgnoreMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}
