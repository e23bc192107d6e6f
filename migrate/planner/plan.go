package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MigrationPlan is the ordered step sequence that turns one snapshot into
// another. From and To are the snapshot fingerprints.
type MigrationPlan struct {
	From    string
	To      string
	Flavour string
	Steps   []Step
}

// IsEmpty reports whether the snapshots were already equal
func (p *MigrationPlan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// Destructive reports whether any step can lose data
func (p *MigrationPlan) Destructive() bool {
	for _, s := range p.Steps {
		if s.IsDestructive() {
			return true
		}
	}
	return false
}

// Warnings describes every step that can lose data or fail on a
// populated database, in plan order
func (p *MigrationPlan) Warnings() []string {
	var warnings []string
	for _, step := range p.Steps {
		switch s := step.(type) {
		case *DropTable:
			warnings = append(warnings, fmt.Sprintf("You are about to drop the table `%s`. All the data in the table will be lost.", s.Table()))
		case *DropColumn:
			warnings = append(warnings, fmt.Sprintf("You are about to drop the column `%s` on the `%s` table. All the data in the column will be lost.", s.Column.Name, s.TableName))
		case *AddColumn:
			if !s.Column.Nullable && s.Column.DefaultValue == nil && !s.Column.AutoIncrement {
				warnings = append(warnings, fmt.Sprintf("Added the required column `%s` to the `%s` table without a default value. This is not possible if the table is not empty.", s.Column.Name, s.TableName))
			}
		case *AlterColumn:
			if s.IsDestructive() {
				warnings = append(warnings, fmt.Sprintf("The column `%s` on the `%s` table is being altered (%s). This may fail or lose data if the existing values do not fit.", s.Next.Name, s.TableName, s.Changes))
			}
		case *RedefineTable:
			if dropped := s.DroppedColumns(); len(dropped) > 0 {
				warnings = append(warnings, fmt.Sprintf("The table `%s` is being redefined and the columns %s will not be copied. Their data will be lost.", s.Table(), quoteNames(dropped)))
			}
		case *AlterEnum:
			if len(s.Removed) > 0 {
				warnings = append(warnings, fmt.Sprintf("The values %s on the enum `%s` will be removed. If these variants are still used in the database, this will fail.", quoteNames(s.Removed), s.Next.Name))
			}
		case *DropEnum:
			warnings = append(warnings, fmt.Sprintf("You are about to drop the enum `%s`.", s.Enum.Name))
		}
	}
	return warnings
}

// stepJSON tags each step with its kind for the rendering collaborator
type stepJSON struct {
	Kind        StepKind `json:"kind"`
	Description string   `json:"description"`
	Destructive bool     `json:"destructive,omitempty"`
	Step        Step     `json:"step"`
}

// MarshalJSON implements json.Marshaler
func (p *MigrationPlan) MarshalJSON() ([]byte, error) {
	steps := make([]stepJSON, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = stepJSON{Kind: s.Kind(), Description: s.Description(), Destructive: s.IsDestructive(), Step: s}
	}
	return json.Marshal(struct {
		From     string     `json:"from"`
		To       string     `json:"to"`
		Flavour  string     `json:"flavour"`
		Steps    []stepJSON `json:"steps"`
		Warnings []string   `json:"warnings,omitempty"`
	}{
		From:     p.From,
		To:       p.To,
		Flavour:  p.Flavour,
		Steps:    steps,
		Warnings: p.Warnings(),
	})
}

func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
