package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

var outputFlags = map[string]string{
	"format":      "output.format",
	"output":      "output.file",
	"overlay-dir": "output.overlay_dir",
}

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [files...]",
	Short: "Decode barcodes in image files",
	Long: `Decode every barcode in one or more image files.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  barscan image label.png
  barscan image *.jpg --format json
  barscan image shelf.jpg --step 15 --formats ean13,upca --overlay-dir out/`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags(merge(pipelineFlags, outputFlags)),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pl, err := pipeline.New(cfg.ToPipelineConfig())
		if err != nil {
			return fmt.Errorf("failed to build decode pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		res, err := decodeFiles(commandContext(cmd), pl, args, cfg.Output.OverlayDir)
		if err != nil {
			return err
		}

		var out string
		if len(res.Items) == 1 && res.Items[0].Result != nil {
			out, err = pipeline.FormatResult(res.Items[0].Result, cfg.Output.Format)
		} else {
			out, err = res.FormatResults(cfg.Output.Format)
		}
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), out, cfg.Output.File)
	},
}

// decodeFiles runs each file through the pipeline in order. Unreadable
// images are reported per file; a failing detector stops the run.
func decodeFiles(ctx context.Context, pl *pipeline.Pipeline, files []string, overlayDir string) (*batch.Result, error) {
	res := &batch.Result{WorkerCount: 1}
	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // G304: user supplied input path
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", file, err)
		}

		r, err := pl.RunWith(ctx, data, pipeline.Overrides{})
		switch {
		case pipeline.IsIngestError(err):
			slog.Warn("Skipping file", "file", file, "error", err)
			res.Items = append(res.Items, batch.ItemResult{File: file, Error: err.Error()})
			continue
		case err != nil:
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		res.Items = append(res.Items, batch.ItemResult{File: file, Result: r})

		if overlayDir != "" {
			if err := saveOverlay(data, r, file, overlayDir); err != nil {
				slog.Warn("Failed to save overlay", "file", file, "error", err)
			}
		}
	}
	return res, nil
}

func saveOverlay(data []byte, res *pipeline.Result, file, dir string) error {
	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		return err
	}
	ov := pipeline.RenderOverlay(img, res, res.Regions, pipeline.DefaultOverlayColors())
	if ov == nil {
		return errors.New("overlay rendering failed")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	base := filepath.Base(file)
	return imaging.Save(ov, filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png"))
}

// writeOutput writes to file when set, to w otherwise.
func writeOutput(w io.Writer, out, file string) error {
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if file == "" {
		_, err := io.WriteString(w, out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addOutputFlags(imageCmd)
	addPipelineFlags(imageCmd.Flags())
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", pipeline.FormatText, "output format ("+strings.Join(pipeline.OutputFormats(), ", ")+")")
	cmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	cmd.Flags().String("overlay-dir", "", "write annotated PNG overlays to this directory")
}
