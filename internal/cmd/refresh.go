package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"osreport/internal/api"
	"osreport/internal/progress"
	"osreport/internal/session"
	"osreport/internal/trace"
)

func newRefreshCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run a refresh session and print its progress",
		Long: `refresh asks the inventory service to re-collect every project and
prints the progress stream as it arrives. With --wait it also waits for the
reload that follows a completed refresh and prints the new totals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runRefresh(ctx, cmd.OutOrStdout(), wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the post-refresh reload")
	return cmd
}

// progressPrinter turns session snapshots into progress lines. It runs on
// the session's reader goroutine only.
type progressPrinter struct {
	out      io.Writer
	message  string
	projects map[string]progress.Status
}

func (p *progressPrinter) update(m progress.Model) {
	if m.Message != p.message {
		p.message = m.Message
		fmt.Fprintf(p.out, "[%3d%%] %s\n", m.Percent, m.Message)
	}
	for _, name := range m.ProjectOrder {
		proj := m.Projects[name]
		if proj == nil || p.projects[name] == proj.Status || !proj.Status.IsTerminal() {
			continue
		}
		p.projects[name] = proj.Status
		icon := "✓"
		if proj.Status == progress.StatusError {
			icon = "✗"
		}
		fmt.Fprintf(p.out, "       %s %s: %s\n", icon, name, proj.Message)
	}
}

func (a *app) runRefresh(ctx context.Context, out io.Writer, wait bool) error {
	traces, shutdown := a.traceManager(ctx)
	defer shutdown()

	var (
		final    progress.Model
		finalErr error
	)
	reloaded := make(chan struct{})
	printer := &progressPrinter{out: out, projects: make(map[string]progress.Status)}
	sess := session.New(session.Options{
		Transport:   session.APITransport{Client: a.client},
		Logger:      a.logger,
		Observer:    trace.NewRecorder(traces),
		ReloadDelay: a.cfg.Refresh.ReloadDelay,
		OnUpdate:    printer.update,
		OnDone:      func(m progress.Model, err error) { final, finalErr = m, err },
		OnReload:    func() { close(reloaded) },
	})
	if err := sess.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})
	g.Go(func() error {
		defer close(finished)
		return sess.Wait(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			sess.Cancel()
		case <-finished:
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh interrupted: %w", err)
	}

	switch {
	case finalErr != nil:
		return fmt.Errorf("refresh: %w", finalErr)
	case final.Failed:
		return errors.New(final.Message)
	}
	for _, k := range slices.Sorted(maps.Keys(final.Summary)) {
		fmt.Fprintf(out, "  %-18s %d\n", progress.ResourceTypeLabel(k), final.Summary[k])
	}

	if !wait {
		return nil
	}
	select {
	case <-reloaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	report, err := a.client.GetResources(ctx, api.Query{})
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	fmt.Fprintf(out, "Reloaded %d resources across %d projects\n", len(report.Resources), report.Summary.TotalProjects)
	return nil
}
