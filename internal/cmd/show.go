package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"osreport/internal/dashboard"
	"osreport/internal/inventory"
	"osreport/internal/ui"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		raw   bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print every field of one resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.controller(dashboard.Options{})
			if err := c.Load(cmd.Context()); err != nil {
				return err
			}
			r, err := c.Resource(args[0])
			if err != nil {
				return err
			}
			md := inventory.Details(r)
			if !raw {
				md = ui.RenderMarkdown(md, width)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	cmd.Flags().IntVar(&width, "width", 100, "wrap rendered output at this width")
	return cmd
}
