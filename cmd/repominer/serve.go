package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sposito/zig-repos-data-miner/internal/api"
	"github.com/Sposito/zig-repos-data-miner/internal/build"
	"github.com/Sposito/zig-repos-data-miner/internal/watch"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen     string
		buildFirst bool
		watchRepos bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored graph over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context(), buildFirst, watchRepos)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from config, :8000)")
	cmd.Flags().BoolVar(&buildFirst, "build", false, "Run a build before serving")
	cmd.Flags().BoolVar(&watchRepos, "watch", false, "Rebuild when a repository's HEAD moves")
	return cmd
}

func (a *app) serve(ctx context.Context, buildFirst, watchRepos bool) error {
	st := a.store()
	if err := st.Init(ctx); err != nil {
		return err
	}

	cached, err := api.NewCachedSource(st, a.cfg.CacheSize)
	if err != nil {
		return err
	}

	var b *build.Builder
	if buildFirst || watchRepos {
		var cleanup func()
		b, cleanup, err = a.builder(ctx, st)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	// Rebuilds are serialized so the store only ever has one writer.
	var mu sync.Mutex
	rebuild := func(ctx context.Context) {
		mu.Lock()
		defer mu.Unlock()
		if _, err := b.Run(ctx, a.cfg.ReposRoot); err != nil {
			a.log.Error("rebuild failed", "error", err)
		}
		cached.Purge()
	}

	if buildFirst {
		rebuild(ctx)
	}

	if watchRepos {
		w, err := watch.NewHeadWatcher(a.cfg.WatchDebounce, rebuild, a.log)
		if err != nil {
			return err
		}
		defer w.Close()

		repos, err := build.Discover(a.cfg.ReposRoot, a.cfg.Marker)
		if err != nil {
			return err
		}
		for _, repo := range repos {
			if err := w.AddRepository(repo); err != nil {
				a.log.Warn("not watching repository", "path", repo, "error", err)
			}
		}
		go w.Start(ctx)
		a.log.Info("watching repositories", "count", len(repos), "debounce", a.cfg.WatchDebounce)
	}

	srv := &http.Server{
		Addr:         a.cfg.Listen,
		Handler:      api.NewRouter(cached, a.log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", a.cfg.Listen, "database", a.cfg.Database)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
