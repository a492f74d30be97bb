package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/mosaic"
	"github.com/gogpu/mosaic/internal/preview"
)

func newRenderCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an image as a mosaic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, v)
		},
	}
	cmd.Flags().StringP("input", "i", "", "input image (png, jpeg, gif, bmp, tiff, webp)")
	cmd.Flags().StringP("output", "o", "", "output PNG file")
	cmd.Flags().Bool("preview", false, "show an interactive preview in the terminal")
	_ = v.BindPFlag("input", cmd.Flags().Lookup("input"))
	_ = v.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = v.BindPFlag("preview", cmd.Flags().Lookup("preview"))
	return cmd
}

func runRender(cmd *cobra.Command, v *viper.Viper) error {
	input := v.GetString("input")
	output := v.GetString("output")
	showPreview := v.GetBool("preview")
	if input == "" {
		return errors.New("an input image is required (use --input)")
	}
	if output == "" && !showPreview {
		return errors.New("nothing to do: set --output, --preview or both")
	}

	cfg, err := loadRenderConfig(v)
	if err != nil {
		return err
	}
	img, err := loadRaster(input, cfg.MaxDim)
	if err != nil {
		return err
	}

	engine, err := mosaic.OpenEngine(cfg.Execution, cfg.engineOptions()...)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if output != "" {
		dst := &mosaic.Surface{}
		if err := engine.Render(ctx, dst, img, cfg.Settings); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if err := dst.SavePNG(output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %s, engine %s\n",
			output, dst.Width(), dst.Height(), cfg.Settings, engine.Name())
	}

	if showPreview {
		return runPreview(ctx, engine, img, cfg.Settings)
	}
	return nil
}

func loadRaster(path string, maxDim int) (*mosaic.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := mosaic.DecodeRaster(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img.Fit(maxDim), nil
}

func runPreview(ctx context.Context, engine mosaic.Engine, img *mosaic.Raster, s mosaic.Settings) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	err = preview.NewViewer(screen, engine, img, s).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
