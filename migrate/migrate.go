// Package migrate computes migration plans between two database schemas.
// It validates both snapshots, pairs and diffs them under an engine flavour
// and orders the resulting steps.
package migrate

import (
	"fmt"

	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff"
	"github.com/satishbabariya/prisma-schemadiff/migrate/diff/flavour"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
	"github.com/satishbabariya/prisma-schemadiff/migrate/planner"
)

// Engine is the main migration planning engine. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	flavour flavour.DifferFlavour
	ignored []string
	opts    diff.Options
}

// Option configures an Engine
type Option func(*Engine)

// WithIgnoredTables excludes tables matching any of the glob patterns
func WithIgnoredTables(patterns ...string) Option {
	return func(e *Engine) {
		e.ignored = append(e.ignored, patterns...)
	}
}

// WithAmbiguousNames resolves names that collide under the flavour's case
// policy last-write-wins instead of failing
func WithAmbiguousNames() Option {
	return func(e *Engine) {
		e.opts.AllowAmbiguousNames = true
	}
}

// NewEngine creates a new migration engine
func NewEngine(f flavour.DifferFlavour, opts ...Option) (*Engine, error) {
	e := &Engine{flavour: f}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.ignored) > 0 {
		matcher, err := flavour.NewIgnoreMatcher(e.ignored)
		if err != nil {
			return nil, err
		}
		e.opts.IgnoredTables = matcher
	}
	return e, nil
}

// NewEngineForProvider creates an engine for a datasource provider name
func NewEngineForProvider(provider string, opts ...Option) (*Engine, error) {
	f, err := flavour.ForProvider(provider)
	if err != nil {
		return nil, err
	}
	return NewEngine(f, opts...)
}

// Flavour returns the engine's flavour
func (e *Engine) Flavour() flavour.DifferFlavour {
	return e.flavour
}

// Plan computes the ordered steps that turn prev into next. References in
// both schemas are resolved under the flavour's case policy.
func (e *Engine) Plan(prev, next *introspect.DatabaseSchema) (*planner.MigrationPlan, error) {
	policy := flavour.Policy(e.flavour)

	prevSnapshot, err := introspect.NewSnapshotWithPolicy(prev, policy)
	if err != nil {
		return nil, fmt.Errorf("invalid previous schema: %w", err)
	}
	nextSnapshot, err := introspect.NewSnapshotWithPolicy(next, policy)
	if err != nil {
		return nil, fmt.Errorf("invalid next schema: %w", err)
	}

	return e.PlanSnapshots(prevSnapshot, nextSnapshot)
}

// PlanSnapshots is Plan for already validated snapshots
func (e *Engine) PlanSnapshots(prev, next *introspect.Snapshot) (*planner.MigrationPlan, error) {
	result, err := diff.NewDiffer(e.flavour, e.opts).Diff(prev, next)
	if err != nil {
		return nil, fmt.Errorf("failed to diff schemas: %w", err)
	}

	plan := planner.NewPlanner().Plan(result)
	if plan.IsEmpty() {
		debug.Info("Schemas are in sync", "fingerprint", plan.To)
	}
	return plan, nil
}
