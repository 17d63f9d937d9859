package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/models"
	"github.com/MeKo-Tech/barscan/internal/onnx"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// doctorCmd checks that the optional ONNX detector can run here.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check decoder, detector model and ONNX Runtime setup",
	Long: `Report the resolved decode pipeline, which detection models are present
and whether the ONNX Runtime shared library can be loaded. Only the onnx
detector needs ONNX Runtime; the default gradient detector does not.`,
	PreRunE: bindFlags(pipelineFlags),
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pl, err := pipeline.New(cfg.ToPipelineConfig())
		if err != nil {
			_, _ = fmt.Fprintf(out, "pipeline: FAILED (%v)\n", err)
		} else {
			info := pl.Info()
			_ = pl.Close()
			_, _ = fmt.Fprintf(out, "pipeline: detector=%s decoder=%s step=%g angles=%d fill=%s\n",
				info.Detector, info.Decoder, info.AngleStep, len(info.Angles), info.FillColor)
		}

		dir := models.GetModelsDir(cfg.ModelsDir)
		_, _ = fmt.Fprintf(out, "models dir: %s\n", dir)
		for _, m := range models.ListAvailableModels() {
			path := models.ResolveModelPath(cfg.ModelsDir, m.Filename)
			status := "ok"
			if err := models.ValidateModelExists(path); err != nil {
				status = "missing"
			}
			_, _ = fmt.Fprintf(out, "  %-6s %-8s %s\n", m.Name, status, path)
		}

		if err := onnx.InitEnvironment(cfg.GPU.Enabled); err != nil {
			_, _ = fmt.Fprintf(out, "onnx runtime: unavailable (%v)\n", err)
			return nil
		}
		defer func() { _ = onnx.DestroyEnvironment() }()
		_, _ = fmt.Fprintln(out, "onnx runtime: ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	addPipelineFlags(doctorCmd.Flags())
}
