package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenderCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render <asset>",
		Short: "Render one asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			dst := output
			if dst == "" {
				dst = svc.OutputPath(a.cfg.OutputDir, args[0])
			}
			art, err := svc.Render(cmd.Context(), args[0], dst)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), art.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <output-dir>/<asset>.<format>)")
	return cmd
}
