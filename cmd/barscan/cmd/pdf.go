package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

var pdfOutputFlags = map[string]string{
	"format": "output.format",
	"output": "output.file",
}

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Decode barcodes in the images embedded in PDF files",
	Long: `Extract the images embedded in PDF pages and decode every barcode
they contain. Results are grouped by page and image.

Examples:
  barscan pdf invoice.pdf
  barscan pdf delivery.pdf --pages 1-3,7 --format json
  barscan pdf locked.pdf --password secret`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags(merge(pipelineFlags, pdfOutputFlags)),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pages, _ := cmd.Flags().GetString("pages")
		user, _ := cmd.Flags().GetString("password")
		owner, _ := cmd.Flags().GetString("owner-password")

		pl, err := pipeline.New(cfg.ToPipelineConfig())
		if err != nil {
			return fmt.Errorf("failed to build decode pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		proc := pdf.NewProcessor(pl)
		proc.SetCredentials(pdf.Credentials{UserPassword: user, OwnerPassword: owner})

		ctx := commandContext(cmd)
		docs := make([]*pdf.DocumentResult, 0, len(args))
		for _, file := range args {
			doc, err := proc.ProcessFile(ctx, file, pages)
			if err != nil {
				if pdf.IsPasswordError(err) {
					return fmt.Errorf("%s: wrong or missing password: %w", file, err)
				}
				return fmt.Errorf("%s: %w", file, err)
			}
			docs = append(docs, doc)
		}

		out, err := pdf.FormatDocuments(docs, cfg.Output.Format)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), out, cfg.Output.File)
	},
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addPipelineFlags(pdfCmd.Flags())

	pdfCmd.Flags().StringP("format", "f", pipeline.FormatText, "output format (json, yaml, csv, text)")
	pdfCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	pdfCmd.Flags().String("pages", "", "page range to process (e.g., '1-5', '1,3,5')")
	pdfCmd.Flags().StringP("password", "p", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}
