package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/mosaic"
)

// renderConfig is the resolved configuration of one invocation.
type renderConfig struct {
	Settings  mosaic.Settings
	Sampling  mosaic.Sampling
	Execution mosaic.Execution
	Workers   int
	MaxDim    int
}

// loadRenderConfig parses the flag, environment and config file values.
func loadRenderConfig(v *viper.Viper) (renderConfig, error) {
	shape, err := mosaic.ParseShape(v.GetString("shape"))
	if err != nil {
		return renderConfig{}, err
	}
	scale, err := opacityScale(v)
	if err != nil {
		return renderConfig{}, err
	}
	bg, err := mosaic.NormalizeBackground(mosaic.BackgroundInput{
		Color:        v.GetString("background"),
		Opacity:      v.GetFloat64("opacity"),
		OpacityScale: scale,
	})
	if err != nil {
		return renderConfig{}, err
	}
	sampling, err := mosaic.ParseSampling(v.GetString("sampling"))
	if err != nil {
		return renderConfig{}, err
	}
	exec, err := mosaic.ParseExecution(v.GetString("engine"))
	if err != nil {
		return renderConfig{}, err
	}

	s := mosaic.Settings{
		TileSize:   v.GetInt("size"),
		Spacing:    v.GetInt("spacing"),
		Shape:      shape,
		Background: bg,
	}
	return renderConfig{
		Settings:  s.Normalize(),
		Sampling:  sampling,
		Execution: exec,
		Workers:   v.GetInt("workers"),
		MaxDim:    max(v.GetInt("max-dim"), 0),
	}, nil
}

// opacityScale resolves --opacity-scale. When neither it nor --opacity is
// given, a background with its own alpha keeps that alpha instead of the
// default opacity.
func opacityScale(v *viper.Viper) (mosaic.OpacityScale, error) {
	if v.IsSet("opacity-scale") || v.IsSet("opacity") {
		return mosaic.ParseOpacityScale(v.GetString("opacity-scale"))
	}
	bg, err := mosaic.ParseColor(v.GetString("background"))
	if err == nil && bg.A < 1 {
		return mosaic.OpacityFromColor, nil
	}
	return mosaic.OpacityUnit, nil
}

// engineOptions returns the options for mosaic.OpenEngine.
func (c renderConfig) engineOptions() []mosaic.EngineOption {
	return []mosaic.EngineOption{
		mosaic.WithSampling(c.Sampling),
		mosaic.WithWorkers(c.Workers),
	}
}

// configDoc is the YAML form of a renderConfig. Keys match the flags, so
// the output is a valid config file.
type configDoc struct {
	Size         int     `yaml:"size"`
	Spacing      int     `yaml:"spacing"`
	Shape        string  `yaml:"shape"`
	Background   string  `yaml:"background"`
	Opacity      float64 `yaml:"opacity"`
	OpacityScale string  `yaml:"opacity-scale"`
	Sampling     string  `yaml:"sampling"`
	Engine       string  `yaml:"engine"`
	Workers      int     `yaml:"workers"`
	MaxDim       int     `yaml:"max-dim"`
}

func (c renderConfig) doc() configDoc {
	bg := c.Settings.Background
	return configDoc{
		Size:         c.Settings.TileSize,
		Spacing:      c.Settings.Spacing,
		Shape:        c.Settings.Shape.String(),
		Background:   fmt.Sprintf("#%02x%02x%02x", bg.R, bg.G, bg.B),
		Opacity:      bg.A,
		OpacityScale: mosaic.OpacityUnit.String(),
		Sampling:     c.Sampling.String(),
		Engine:       c.Execution.String(),
		Workers:      c.Workers,
		MaxDim:       c.MaxDim,
	}
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging flags, MOSAIC_* environment
variables and the config file, with every value normalized. The output can
be saved and passed back with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRenderConfig(v)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.doc()); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
