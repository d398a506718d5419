package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/models"
	"github.com/strategiq/swot/internal/modules/analysis"
	"github.com/strategiq/swot/internal/modules/report"
	"github.com/strategiq/swot/internal/pkg/pdfcache"
	"go.uber.org/zap"
)

type analyzeFlags struct {
	config   string
	primary  string
	compare  string
	out      string
	jsonOnly bool
	verbose  bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a SWOT analysis and write the PDF report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.config)
			if err != nil {
				return err
			}
			req, err := analysis.ParseRequest(opts.primary, opts.compare, cfg.Input)
			if err != nil {
				return err
			}

			log := zap.NewNop()
			if opts.verbose {
				if log, err = zap.NewDevelopment(); err != nil {
					return err
				}
			}
			runner := analysis.NewFromConfig(cfg, log)

			stderr := cmd.ErrOrStderr()
			result, err := runner.Run(cmd.Context(), req, func(msg string) {
				fmt.Fprintln(stderr, msg)
			})
			if err != nil {
				return err
			}

			if opts.jsonOnly {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			pdf, err := report.RenderContext(cmd.Context(), *result)
			if err != nil {
				return err
			}
			out := opts.out
			if out == "" {
				out = report.Filename(*result, time.Now())
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", config.DefaultConfigPath, "Path to YAML config file")
	cmd.Flags().StringVarP(&opts.primary, "primary", "p", "", "Primary entity name or URL")
	cmd.Flags().StringVar(&opts.compare, "compare", "", "Comma separated comparison entities")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output PDF path (default: generated report name)")
	cmd.Flags().BoolVar(&opts.jsonOnly, "json", false, "Print the analysis as JSON instead of rendering a PDF")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log research and provider calls")
	_ = cmd.MarkFlagRequired("primary")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a saved analysis JSON file to PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := readAnalysis(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			pdf, err := report.RenderContext(cmd.Context(), a)
			if err != nil {
				return err
			}
			if out == "" {
				out = report.Filename(a, time.Now())
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Analysis JSON file, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PDF path (default: generated report name)")
	return cmd
}

func newFingerprintCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the content fingerprint of a saved analysis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := readAnalysis(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pdfcache.Fingerprint(a))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Analysis JSON file, - for stdin")
	return cmd
}

func readAnalysis(path string, stdin io.Reader) (models.SwotAnalysis, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.SwotAnalysis{}, err
	}

	var a models.SwotAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return models.SwotAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if a.PrimaryEntity == "" {
		return models.SwotAnalysis{}, fmt.Errorf("decode analysis: primary_entity is empty")
	}
	return a, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
