package cmd

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"osreport/internal/dashboard"
	"osreport/internal/session"
	"osreport/internal/trace"
	"osreport/internal/ui"
)

func newTUICmd(a *app) *cobra.Command {
	var exportDir string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory receiving PDF exports")
	return cmd
}

func (a *app) runTUI(cmd *cobra.Command) error {
	exportDir := "."
	if f := cmd.Flags().Lookup("export-dir"); f != nil {
		exportDir = f.Value.String()
	}

	traces, shutdown := a.traceManager(cmd.Context())
	defer shutdown()

	c := a.controller(dashboard.Options{
		Transport: session.APITransport{Client: a.client},
		Observer:  trace.NewRecorder(traces),
	})
	model := ui.NewAppModel(c, ui.Options{Traces: traces, ExportDir: exportDir})
	p := tea.NewProgram(model.AsTeaModel(), tea.WithAltScreen())
	ui.Bind(p, c, traces)

	a.logger.Info("dashboard started", "api_url", a.client.BaseURL())
	_, err := p.Run()
	c.CancelRefresh()
	return err
}

// traceManager keeps recent refresh traces and exports them over OTLP when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. shutdown flushes the exporter.
func (a *app) traceManager(ctx context.Context) (*trace.Manager, func()) {
	exporter, err := trace.NewOTLPExporter(ctx)
	if err != nil {
		a.logger.Warn("otlp exporter disabled", "error", err)
	}
	// A nil *OTLPExporter must not reach the manager as a non-nil Exporter.
	var mgr *trace.Manager
	if exporter != nil {
		mgr = trace.NewManager(10, exporter, a.logger)
	} else {
		mgr = trace.NewManager(10, nil, a.logger)
	}
	return mgr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mgr.Shutdown(ctx); err != nil {
			a.logger.Warn("trace exporter shutdown", "error", err)
		}
	}
}
