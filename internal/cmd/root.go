// Package cmd is the osreport command line: the dashboard TUI by default,
// plus headless list, show, refresh and export commands and a demo backend.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"osreport/internal/api"
	"osreport/internal/config"
	"osreport/internal/dashboard"
)

// app is the state shared by every subcommand, built in the root's
// PersistentPreRunE.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	creds    *api.Credentials
	client   *api.Client
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "osreport",
		Short: "OpenStack inventory dashboard",
		Long: `osreport browses the resources of an OpenStack inventory service:
virtual machines, volumes, floating IPs, networks, routers, load balancers,
VPN services and Kubernetes clusters across projects.

Run without a subcommand to open the terminal dashboard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./osreport.yaml or ~/.config/osreport/osreport.yaml)")
	pf.String("api-url", "", "inventory API root, e.g. http://localhost:8080")
	pf.String("token", "", "API token (also OSREPORT_API_TOKEN or API_TOKEN)")
	pf.String("log-level", "", "debug, info, warn or error")
	_ = a.v.BindPFlag("api.url", pf.Lookup("api-url"))
	_ = a.v.BindPFlag("api.token", pf.Lookup("token"))
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))

	root.AddCommand(
		newTUICmd(a),
		newListCmd(a),
		newShowCmd(a),
		newRefreshCmd(a),
		newExportCmd(a),
		newDemoCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads .env and the config file, opens the log and builds the client.
func (a *app) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// The dashboard owns the terminal, so without a log file it logs nothing.
	// The demo server always logs to stderr.
	fallback := cmd.ErrOrStderr()
	switch cmd.Name() {
	case "osreport", "tui":
		fallback = io.Discard
	case "demo":
		cfg.Log.File = ""
	}
	logger, closeLog, err := newLogger(cfg.Log, fallback)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "log file error: %v\n", err)
		logger, closeLog = slog.New(slog.DiscardHandler), nil
	}
	a.logger, a.closeLog = logger, closeLog

	a.creds = api.NewCredentials(cfg.API.Token)
	a.client = api.New(cfg.API.URL, a.creds,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)
	config.WatchToken(a.v, a.creds, logger)

	logger.Debug("config loaded", "file", a.v.ConfigFileUsed(), "api_url", cfg.API.URL)
	return nil
}

// controller builds a dashboard controller over the API client.
func (a *app) controller(opts dashboard.Options) *dashboard.Controller {
	opts.Source = a.client
	if opts.Logger == nil {
		opts.Logger = a.logger
	}
	if opts.ReloadDelay == 0 {
		opts.ReloadDelay = a.cfg.Refresh.ReloadDelay
	}
	return dashboard.New(opts)
}
