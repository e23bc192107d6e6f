package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-schemadiff/cli/internal/config"
	"github.com/satishbabariya/prisma-schemadiff/cli/internal/ui"
	"github.com/satishbabariya/prisma-schemadiff/cli/internal/watch"
	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
	"github.com/satishbabariya/prisma-schemadiff/migrate"
	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
	"github.com/satishbabariya/prisma-schemadiff/migrate/planner"
)

// ErrDestructivePlan is returned by diff --fail-on-destructive when the plan
// can lose data
var ErrDestructivePlan = errors.New("migration plan contains destructive steps")

type diffOptions struct {
	from              string
	fromURL           string
	to                string
	ignore            []string
	allowAmbiguous    bool
	format            string
	watch             bool
	failOnDestructive bool
}

// NewDiffCommand creates the diff command
func NewDiffCommand(global *globalOptions) *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the migration plan between two snapshots",
		Long: `Compare a previous schema with a next schema and print the ordered steps
that migrate one into the other. The previous schema is a snapshot file
(--from) or a live database (--from-url); the next schema is always a
snapshot file (--to).`,
		Example: `  schemadiff diff --from prev.yaml --to next.yaml
  schemadiff diff -p sqlite --from-url file:dev.db --to next.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.merge(global.cfg)
			return runDiff(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "Previous snapshot file")
	cmd.Flags().StringVar(&opts.fromURL, "from-url", "", "Introspect the previous schema from this database")
	cmd.Flags().StringVar(&opts.to, "to", "", "Next snapshot file")
	cmd.Flags().StringSliceVar(&opts.ignore, "ignore", nil, "Glob patterns of tables to leave out")
	cmd.Flags().BoolVar(&opts.allowAmbiguous, "allow-ambiguous", false, "Resolve names that collide under the case policy instead of failing")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: text, json or markdown")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-plan whenever a snapshot file changes")
	cmd.Flags().BoolVar(&opts.failOnDestructive, "fail-on-destructive", false, "Exit with an error if any step can lose data")

	return cmd
}

// merge fills options the flags left unset from the config file
func (o *diffOptions) merge(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if o.from == "" && o.fromURL == "" {
		o.from = cfg.From
	}
	if o.to == "" {
		o.to = cfg.To
	}
	if o.format == "" {
		o.format = cfg.Format
	}
	o.ignore = append(o.ignore, cfg.Ignore...)
	o.allowAmbiguous = o.allowAmbiguous || cfg.AllowAmbiguousNames
}

func runDiff(cmd *cobra.Command, global *globalOptions, opts *diffOptions) error {
	if opts.to == "" {
		return fmt.Errorf("--to is required")
	}
	if opts.from != "" && opts.fromURL != "" {
		return fmt.Errorf("--from and --from-url are mutually exclusive")
	}
	if opts.from == "" && opts.fromURL == "" {
		return fmt.Errorf("one of --from or --from-url is required")
	}
	format, err := ui.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	provider := global.resolveProvider()
	if provider == "" && opts.fromURL != "" {
		provider = detectProvider(opts.fromURL)
	}
	if provider == "" {
		return fmt.Errorf("no provider given (use --provider or set provider in the config file)")
	}

	engineOpts := []migrate.Option{migrate.WithIgnoredTables(opts.ignore...)}
	if opts.allowAmbiguous {
		engineOpts = append(engineOpts, migrate.WithAmbiguousNames())
	}
	engine, err := migrate.NewEngineForProvider(provider, engineOpts...)
	if err != nil {
		return err
	}

	once := func(ctx context.Context) error {
		plan, err := planOnce(ctx, engine, provider, opts)
		if err != nil {
			return err
		}
		if err := ui.RenderPlan(cmd.OutOrStdout(), plan, format); err != nil {
			return err
		}
		if opts.failOnDestructive && plan.Destructive() {
			return ErrDestructivePlan
		}
		return nil
	}

	if !opts.watch {
		return once(cmd.Context())
	}

	files := []string{opts.to}
	if opts.from != "" {
		files = append(files, opts.from)
	}
	w, err := watch.NewWatcher(files, watch.DefaultDebounce, func(ctx context.Context) error {
		if err := once(ctx); err != nil {
			ui.PrintError(cmd.ErrOrStderr(), "%v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ui.PrintInfo(cmd.ErrOrStderr(), "Watching %d file(s), press Ctrl+C to stop", len(files))
	return w.Run(ctx)
}

// planOnce loads both schemas and plans between them
func planOnce(ctx context.Context, engine *migrate.Engine, provider string, opts *diffOptions) (*planner.MigrationPlan, error) {
	var prev *introspect.DatabaseSchema
	var err error
	if opts.fromURL != "" {
		prev, _, err = introspectDatabase(ctx, provider, opts.fromURL)
	} else {
		prev, err = introspect.ReadFile(config.AppFs, opts.from)
	}
	if err != nil {
		return nil, err
	}

	next, err := introspect.ReadFile(config.AppFs, opts.to)
	if err != nil {
		return nil, err
	}

	plan, err := engine.Plan(prev, next)
	if err != nil {
		return nil, err
	}
	debug.Debug("Planned migration", "steps", len(plan.Steps), "destructive", plan.Destructive())
	return plan, nil
}
