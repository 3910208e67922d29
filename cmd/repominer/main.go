// Package main provides the repominer CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sposito/zig-repos-data-miner/internal/build"
	"github.com/Sposito/zig-repos-data-miner/internal/config"
	"github.com/Sposito/zig-repos-data-miner/internal/dirio"
	"github.com/Sposito/zig-repos-data-miner/internal/gitio"
	"github.com/Sposito/zig-repos-data-miner/internal/parse"
	"github.com/Sposito/zig-repos-data-miner/internal/store"
)

// Version is the current repominer version.
var Version = "0.3.0"

// globalFlags override values from the config file and environment.
type globalFlags struct {
	configPath string
	database   string
	repos      string
	inspector  string
	logLevel   string
}

// app carries what every command needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	a := &app{}

	root := &cobra.Command{
		Use:   "repominer",
		Short: "Mine git repositories into a queryable knowledge graph",
		Long: `repominer walks every repository under a root directory, records its commits,
folders, files and import references in a graph, persists the graph in SQLite or
Postgres and serves commit history over HTTP.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.database != "" {
				cfg.Database = flags.database
			}
			if flags.repos != "" {
				cfg.ReposRoot = flags.repos
			}
			if flags.inspector != "" {
				cfg.Inspector = flags.inspector
			}
			if flags.logLevel != "" {
				cfg.LogLevel = flags.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
			a.log = cfg.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(a.log)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	pf.StringVar(&flags.database, "db", "", "SQLite path or postgres:// URL")
	pf.StringVar(&flags.repos, "repos", "", "Directory containing the repositories")
	pf.StringVar(&flags.inspector, "inspector", "", "History backend: gogit or cli")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newInitCmd(a),
		newBuildCmd(a),
		newServeCmd(a),
		newCommitsCmd(a),
		newReposCmd(a),
		newStatsCmd(a),
		newCleanCmd(a),
	)
	return root
}

func (a *app) store() *store.Store {
	return store.New(a.cfg.Database, store.WithLogger(a.log))
}

// builder wires the construction pipeline from configuration. The returned
// cleanup closes the optional Neo4j mirror.
func (a *app) builder(ctx context.Context, st *store.Store) (*build.Builder, func(), error) {
	insp, err := gitio.New(a.cfg.Inspector)
	if err != nil {
		return nil, nil, err
	}
	reg, err := parse.NewRegistryFor(a.cfg.Extractors...)
	if err != nil {
		return nil, nil, err
	}
	scanner := dirio.NewScanner(reg,
		dirio.WithLogger(a.log),
		dirio.WithIgnorePatterns(a.cfg.Ignore...),
		dirio.WithSkipVCS(a.cfg.SkipVCS),
	)

	opts := []build.Option{build.WithLogger(a.log), build.WithMarker(a.cfg.Marker)}
	cleanup := func() {}
	if a.cfg.Neo4j.URI != "" {
		mirror, err := store.NewNeo4jMirror(ctx, store.Neo4jConfig{
			URI:      a.cfg.Neo4j.URI,
			Username: a.cfg.Neo4j.User,
			Password: a.cfg.Neo4j.Password,
			Database: a.cfg.Neo4j.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, build.WithSink(mirror))
		cleanup = func() { mirror.Close(context.Background()) }
	}
	return build.New(st, insp, scanner, opts...), cleanup, nil
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the graph tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.store()
			if err := st.Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s store at %s\n", st.Dialect(), a.cfg.Database)
			return nil
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Process every repository and save the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := a.store()
			if err := st.Init(ctx); err != nil {
				return err
			}
			b, cleanup, err := a.builder(ctx, st)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := b.Run(ctx, a.cfg.ReposRoot)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d repositories (%d failed): %d nodes, %d edges in %s\n",
				summary.Repositories, summary.Failed, summary.Nodes, summary.Edges, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newCommitsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "commits <repo-id>",
		Short: "List a repository's commits, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store().CommitsForRepository(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Commit, r.Timestamp, r.Author, r.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newReposCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List stored repository ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store().Repositories(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored node and edge counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.store().Stats(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Hard-reset and clean every repository's working tree",
		Long:  "Runs the equivalent of `git reset --hard` and `git clean -fdx` in every repository. Untracked files are deleted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resetter, err := gitio.New(a.cfg.Inspector)
			if err != nil {
				return err
			}
			cleaned, failed, err := build.CleanAll(cmd.Context(), resetter, a.cfg.ReposRoot, a.cfg.Marker, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %d repositories (%d failed)\n", cleaned, failed)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
