package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"asset-thumbnailer/internal/asset"
	"asset-thumbnailer/internal/bmd"
	"asset-thumbnailer/internal/pipeline"
	"asset-thumbnailer/internal/scene"
)

func newInspectCmd(a *app) *cobra.Command {
	var exportDir string
	cmd := &cobra.Command{
		Use:   "inspect <asset>...",
		Short: "Print geometry, clips and framing of assets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			keys, err := a.cfg.BMDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				if err := inspectAsset(cmd.Context(), out, svc.Loader, svc.Options.Framing, path); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				if exportDir != "" && strings.EqualFold(filepath.Ext(path), ".bmd") {
					if err := exportPlain(out, path, exportDir, keys); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d assets could not be inspected", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-bmd", "", "Also write decrypted BMD files as plain version 10 into this directory")
	return cmd
}

func inspectAsset(ctx context.Context, out io.Writer, l asset.Loader, framing pipeline.Framing, path string) error {
	a, err := l.Load(ctx, path)
	if err != nil {
		return err
	}

	meshes, tris := 0, 0
	a.Root.EachMesh(func(_ *scene.Node, m *scene.Mesh) {
		meshes++
		tris += m.TriangleCount()
	})
	box := scene.ComputeBounds(a.Root)

	fmt.Fprintf(out, "=== %s ===\n", path)
	fmt.Fprintf(out, "  meshes=%d triangles=%d\n", meshes, tris)
	if box.IsEmpty() {
		fmt.Fprintln(out, "  bounds: empty")
	} else {
		s, c := box.Size(), box.Center()
		fmt.Fprintf(out, "  size=(%.3f, %.3f, %.3f) center=(%.3f, %.3f, %.3f)\n", s[0], s[1], s[2], c[0], c[1], c[2])
		if n, err := pipeline.Normalize(box, pipeline.CanvasSize, framing); err == nil {
			fmt.Fprintf(out, "  scale=%.4f\n", n.Scale)
		} else {
			fmt.Fprintf(out, "  framing: %v\n", err)
		}
	}
	if len(a.Clips) == 0 {
		fmt.Fprintln(out, "  clips: none (still image)")
		return nil
	}
	fmt.Fprintf(out, "  clips: %d (animated)\n", len(a.Clips))
	for _, c := range a.Clips {
		fmt.Fprintf(out, "    %-24s %.2fs tracks=%d\n", c.Name, c.Duration, len(c.Tracks))
	}
	return nil
}

func exportPlain(out io.Writer, path, dir string, keys bmd.Keys) error {
	m, err := bmd.Parse(path, keys)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if err := os.WriteFile(dst, bmd.Encode(m), 0o644); err != nil {
		return fmt.Errorf("export %s: %w", dst, err)
	}
	fmt.Fprintf(out, "  exported v%d as v10: %s\n", m.Version, dst)
	return nil
}
