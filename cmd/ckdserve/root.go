package main

import (
	"os"

	"github.com/spf13/cobra"

	"ckdserve/internal/config"
)

// options carries the persistent flags shared by every subcommand.
type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ckdserve",
		Short:         "Chronic kidney disease classifier served over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.String("artifact", "", "Artifact file (defaults CKDSERVE_ARTIFACT or "+config.DefaultArtifactPath+")")
	pf.String("labels-csv", "", "Training CSV used to fit class labels instead of the artifact's own")
	pf.String("labels-column", "", "Label column of --labels-csv (default "+config.DefaultLabelsColumn+")")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("log-format", "", "Log format: json|console")

	root.AddCommand(newServeCmd(opts), newCheckCmd(opts), newFixtureCmd(opts))
	return root
}

// resolve layers configuration: file, then CKDSERVE_* env, then flags that
// were set explicitly, then defaults.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	cfg, err := config.ApplyEnv(cfg, os.Getenv)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	str("artifact", &cfg.ArtifactPath)
	str("labels-csv", &cfg.LabelsCSV)
	str("labels-column", &cfg.LabelsColumn)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("addr", &cfg.Addr)
	str("audit-log", &cfg.AuditLog)
	if f := flags.Lookup("watch"); f != nil && f.Changed {
		cfg.WatchArtifact, _ = flags.GetBool("watch")
	}
	if f := flags.Lookup("cache-size"); f != nil && f.Changed {
		cfg.CacheSize, _ = flags.GetInt("cache-size")
	}
	return config.WithDefaults(cfg), nil
}
