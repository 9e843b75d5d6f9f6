package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"osreport/internal/api"
	"osreport/internal/demoserver"
)

func newDemoCmd(a *app) *cobra.Command {
	var (
		addr     string
		projects int
		pace     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve a generated inventory over the dashboard API",
		Long: `demo runs a local inventory service with generated projects and
resources. Point the dashboard at it with --api-url.

The token comes from demo.token, OSREPORT_DEMO_TOKEN or API_TOKEN; without
one the API is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := demoserver.Options{
				Addr:     a.cfg.Demo.Addr,
				Token:    a.cfg.Demo.Token,
				Projects: a.cfg.Demo.Projects,
				Pace:     a.cfg.Demo.Pace,
				Version:  api.Version{Version: Version, GitCommit: GitCommit, BuildTime: BuildDate},
				Logger:   a.logger,
			}
			if cmd.Flags().Changed("addr") {
				opts.Addr = addr
			}
			if cmd.Flags().Changed("projects") {
				opts.Projects = projects
			}
			if cmd.Flags().Changed("pace") {
				opts.Pace = pace
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd.OutOrStdout(), demoserver.New(opts), opts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&projects, "projects", 4, "number of generated projects")
	cmd.Flags().DurationVar(&pace, "pace", 150*time.Millisecond, "delay per collected resource type during a refresh")
	return cmd
}

// runDemo serves until ctx is done and announces the URL once the API
// answers.
func runDemo(ctx context.Context, out io.Writer, srv *demoserver.Server, opts demoserver.Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		url := demoURL(opts.Addr)
		client := api.New(url, api.NewCredentials(opts.Token), api.WithTimeout(time.Second))
		if err := waitReady(gctx, client); err != nil {
			return nil
		}
		fmt.Fprintf(out, "Demo inventory ready at %s (%d projects)\n", url, opts.Projects)
		fmt.Fprintf(out, "Open the dashboard with: osreport --api-url %s\n", url)
		return nil
	})
	return g.Wait()
}

// waitReady polls the status endpoint until it answers or ctx is done.
func waitReady(ctx context.Context, client *api.Client) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := client.GetStatus(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// demoURL turns a listen address into a URL a local client can reach.
func demoURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
