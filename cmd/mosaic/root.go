package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/mosaic"
)

// newRootCmd builds the command tree with its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "mosaic",
		Short: "Render images as tile mosaics",
		Long: `mosaic tiles an image into squares or circles, each filled with one
representative color, separated by a gutter in a background color.

Examples:
  # 12px circles with a 2px gutter
  mosaic render -i photo.jpg -o mosaic.png --size 12 --spacing 2 --shape circle

  # Average colors on the CPU with 8 workers
  mosaic render -i photo.jpg -o mosaic.png --sampling average --workers 8

  # Interactive terminal preview
  mosaic render -i photo.jpg --preview

  # Show the effective configuration
  mosaic config`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(v, cfgFile); err != nil {
				return err
			}
			initLogger(cmd, v)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mosaic.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log render details to stderr")
	addSettingsFlags(root)
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(newRenderCmd(v), newConfigCmd(v))
	return root
}

// addSettingsFlags registers the flags shared by render and config.
func addSettingsFlags(cmd *cobra.Command) {
	d := mosaic.DefaultSettings()
	f := cmd.PersistentFlags()
	f.Int("size", d.TileSize, "tile size in pixels")
	f.Int("spacing", d.Spacing, "gutter between tiles in pixels")
	f.String("shape", d.Shape.String(), "tile shape (square|circle)")
	f.String("background", "black", "gutter color (#rrggbb, rgb(), hsl(), name)")
	f.Float64("opacity", d.Background.A, "background opacity, see --opacity-scale")
	f.String("opacity-scale", mosaic.OpacityUnit.String(), "opacity encoding (unit: 0-1|byte: 0-255|color: alpha of --background); defaults to color when --background has alpha below 1 and --opacity is unset")
	f.String("sampling", mosaic.SamplingCenter.String(), "tile color policy (center|average)")
	f.String("engine", mosaic.ExecAuto.String(), "render engine (auto|cpu|gpu)")
	f.Int("workers", 1, "CPU engine goroutines (0 = GOMAXPROCS)")
	f.Int("max-dim", 0, "downscale the input so its longer side is at most this (0 = off)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("mosaic")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigType("yaml")
	v.SetConfigName(".mosaic")
	// A missing default config file is fine.
	_ = v.ReadInConfig()
	return nil
}

// initLogger routes mosaic logs to stderr when --verbose is set.
func initLogger(cmd *cobra.Command, v *viper.Viper) {
	if !v.GetBool("verbose") {
		mosaic.SetLogger(nil)
		return
	}
	mosaic.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}
