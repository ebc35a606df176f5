package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"asset-thumbnailer/internal/config"
	"asset-thumbnailer/internal/logger"
	"asset-thumbnailer/internal/metrics"
	"asset-thumbnailer/internal/thumbnail"
)

// app holds state shared by subcommands once the root pre-run resolved it.
type app struct {
	configPath string
	flags      config.Flags

	cfg     *config.Config
	metrics *metrics.Collector
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "thumbnail",
		Short:         "Render framed thumbnails of 3D assets",
		Long:          `thumbnail frames a glTF, GLB or BMD model on a 512×512 canvas and writes a still image, or a looping 30-frame animation when the model has animation clips.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to YAML config (default ./"+config.DefaultFileName+" if present)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.flags.OutputDir, "output-dir", "", "Directory for rendered thumbnails")
	pf.StringVar(&a.flags.OutputFormat, "format", "", "Output format: webp or png")
	pf.StringVar(&a.flags.Sampling, "sampling", "", "Frame sampling: free-running or deterministic")
	pf.StringVar(&a.flags.ClipPolicy, "clip-policy", "", "Clips to play: all, first or named")
	pf.StringVar(&a.flags.ClipName, "clip", "", "Clip name for --clip-policy=named")
	pf.StringVar(&a.flags.Framing, "framing", "", "Framing: centered or reference")
	pf.StringVar(&a.flags.EnvMapURL, "env-map", "", "Environment map path or URL (overrides "+config.EnvMapURLEnv+")")
	pf.IntVar(&a.flags.Supersample, "supersample", 0, "Supersampling factor")

	root.AddCommand(
		newRenderCmd(a),
		newBatchCmd(a),
		newInspectCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Resolve(a.flags); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return err
	}
	a.cfg = cfg
	a.metrics = metrics.NewCollector(logger.Log)
	return nil
}

func (a *app) service() (*thumbnail.Service, error) {
	return thumbnail.New(a.cfg, logger.Named("thumbnail"), a.metrics)
}

// flushMetrics writes the textfile when configured. Failures are logged only.
func (a *app) flushMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		logger.Log.Warn("metrics not written", zap.Error(err))
	}
}
