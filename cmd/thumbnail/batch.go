package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"asset-thumbnailer/internal/asset"
	"asset-thumbnailer/internal/batch"
	"asset-thumbnailer/internal/logger"
)

func newBatchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Render every supported asset under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			reg, ok := svc.Loader.(*asset.Registry)
			if !ok {
				return fmt.Errorf("batch: loader %T cannot report supported formats", svc.Loader)
			}
			assets, err := batch.Discover(args[0], reg.Supports)
			if err != nil {
				return err
			}
			if limit > 0 && limit < len(assets) {
				assets = assets[:limit]
			}
			if len(assets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No assets to render.")
				return nil
			}

			log := logger.Named("batch")
			log.Info("batch started",
				zap.Int("assets", len(assets)),
				zap.Int("workers", a.cfg.Workers),
				zap.String("output", a.cfg.OutputDir),
			)
			results := batch.Run(cmd.Context(), batch.Config{
				SourceDir:        args[0],
				OutputDir:        a.cfg.OutputDir,
				Workers:          a.cfg.Workers,
				Renderer:         svc,
				Log:              log,
				ProgressInterval: 2 * time.Second,
			}, assets)

			m := batch.BuildManifest(a.cfg.OutputDir, results)
			if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
				return err
			}
			manifestPath := filepath.Join(a.cfg.OutputDir, "manifest.json")
			if err := batch.WriteManifest(manifestPath, m); err != nil {
				log.Warn("manifest not written", zap.Error(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rendered: %d/%d\n", m.Total-m.Failed, m.Total)
			fmt.Fprintf(out, "Manifest: %s\n", manifestPath)
			if m.Failed > 0 {
				fmt.Fprintf(out, "\nFailed (%d):\n", m.Failed)
				shown := 0
				for _, r := range results {
					if r.Success {
						continue
					}
					if shown == 20 {
						break
					}
					fmt.Fprintf(out, "  %s: %s\n", r.Asset, r.Error)
					shown++
				}
				return fmt.Errorf("%d of %d assets failed", m.Failed, m.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&a.flags.Workers, "workers", 0, "Number of concurrent renders (default: config workers)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Render only the first N assets")
	return cmd
}
