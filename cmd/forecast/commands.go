package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/orchestrator"
	"churn-horizon-lab/internal/reporting"
	"churn-horizon-lab/internal/scenariofile"
	"churn-horizon-lab/internal/storage/memory"
	"churn-horizon-lab/internal/streamclient"
)

// newOrchestrator builds a stateless orchestrator for one-shot predictions.
func newOrchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{RunStore: memory.NewForecastRunStore()})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newHorizonsCmd() *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "horizons",
		Short: "Predict churn for each time horizon",
		Long: `Predict churn probability and uplift for 0-4, 4-8, 8-12 and 12+ weeks
after a price change.

Example: forecast horizons --price 16.67 --baseline 0.05 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := in.resolve(cmd)
			if err != nil {
				return err
			}
			f := newOrchestrator().Horizons(r.Scenario)
			return renderHorizons(cmd.OutOrStdout(), in.format, f)
		},
	}

	in.register(cmd, false)
	return cmd
}

func renderHorizons(w io.Writer, format string, f domain.HorizonForecast) error {
	switch format {
	case formatCSV:
		return writeOut(w, reporting.RenderHorizonCSV(f))
	case formatMarkdown:
		return writeOut(w, reporting.RenderHorizonMarkdown(f))
	default:
		return writeJSON(w, f)
	}
}

func newSegmentsCmd() *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Predict churn uplift per customer segment",
		Long: `Scale each horizon's uplift by a segment multiplier derived from price
elasticity. Segments come from --file and/or repeated --segment flags.

Example: forecast segments --price 10 --segment "Students:0.3:-3.5" --segment "Families:0.7"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := in.resolve(cmd)
			if err != nil {
				return err
			}
			results := newOrchestrator().Segments(r.Scenario, r.Segments)

			w := cmd.OutOrStdout()
			switch in.format {
			case formatCSV:
				return writeOut(w, reporting.RenderSegmentCSV(results))
			case formatMarkdown:
				return writeOut(w, reporting.RenderSegmentMarkdown(results))
			default:
				return writeJSON(w, results)
			}
		},
	}

	in.register(cmd, true)
	return cmd
}

func newSweepCmd() *cobra.Command {
	var in inputFlags
	var prices []float64

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate horizon churn across a list of price changes",
		Long: `Evaluate the horizon forecast at each price change, in the given order.
--prices replaces the file's sweep list.

Example: forecast sweep --prices 0,5,10,16.67,25 --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := in.resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("prices") {
				r.SweepPrices = prices
			}
			if len(r.SweepPrices) == 0 {
				return fmt.Errorf("no price changes to sweep (use --prices or a sweep section in --file)")
			}
			points := newOrchestrator().Sweep(r.SweepBaseline, r.SweepPrices)

			w := cmd.OutOrStdout()
			switch in.format {
			case formatCSV:
				return writeOut(w, reporting.RenderSweepCSV(points))
			case formatMarkdown:
				return writeOut(w, reporting.RenderSweepMarkdown(points))
			default:
				return writeJSON(w, points)
			}
		},
	}

	in.register(cmd, false)
	cmd.Flags().Float64SliceVar(&prices, "prices", nil, "Comma-separated price changes in percent")
	return cmd
}

func newReportCmd() *cobra.Command {
	var in inputFlags
	var outputPath, xlsxPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute a forecast run and render a full report",
		Long: `Compute horizons, segments and the optional sweep for a scenario, then
render a Markdown report (stdout or --output) and optionally an Excel workbook.

Example: forecast report --file scenario.yaml --output report.md --xlsx report.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := in.resolve(cmd)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), r, outputPath, xlsxPath, verbose)
		},
	}

	in.register(cmd, true)
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the Markdown report to this path instead of stdout")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write an Excel workbook to this path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log run details to stderr")
	return cmd
}

func newStreamCmd() *cobra.Command {
	var in inputFlags
	var url string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Request horizon forecasts from a running server over WebSocket",
		Long: `Send the scenario, then one scenario per sweep price, to a server's
/v1/churn/stream endpoint and print each reply.

Example: forecast stream --url ws://localhost:8080/v1/churn/stream --price 16.67`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := in.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := streamclient.Dial(ctx, url, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			scenarios := []domain.Scenario{r.Scenario}
			for _, p := range r.SweepPrices {
				scenarios = append(scenarios, domain.Scenario{PriceChangePct: p, BaselineChurn: r.SweepBaseline})
			}

			w := cmd.OutOrStdout()
			for _, s := range scenarios {
				price, baseline := s.PriceChangePct, s.BaselineChurn
				f, err := client.Forecast(ctx, domain.ScenarioInput{PriceChangePct: &price, BaselineChurn: &baseline})
				if err != nil {
					return fmt.Errorf("price %g: %w", price, err)
				}
				if in.format == formatJSON {
					if err := writeJSON(w, domain.SweepPoint{PriceChangePct: price, Horizons: f}); err != nil {
						return err
					}
					continue
				}
				if err := renderHorizons(w, in.format, f); err != nil {
					return err
				}
			}
			return nil
		},
	}

	in.register(cmd, false)
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/v1/churn/stream", "Stream endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	return cmd
}

// runReport stores the run in memory, builds the report and writes the outputs.
func runReport(ctx context.Context, stdout io.Writer, r *scenariofile.Resolved, outputPath, xlsxPath string, verbose bool) error {
	runStore := memory.NewForecastRunStore()
	orch := orchestrator.New(orchestrator.Options{
		RunStore:   runStore,
		PointStore: memory.NewHorizonPointStore(),
		Logger:     log.New(os.Stderr, "[forecast] ", log.LstdFlags),
		Verbose:    verbose,
	})

	result, err := orch.Run(ctx, orchestrator.RunRequest{
		Label:    r.Label,
		Scenario: r.Scenario,
		Segments: r.Segments,
	})
	if err != nil {
		return fmt.Errorf("run forecast: %w", err)
	}

	var sweep []domain.SweepPoint
	if len(r.SweepPrices) > 0 {
		sweep = orch.Sweep(r.SweepBaseline, r.SweepPrices)
	}

	report, err := reporting.NewGenerator(runStore).Generate(ctx, result.Run.RunID, sweep)
	if err != nil {
		return err
	}

	md := reporting.RenderMarkdown(report)
	if outputPath == "" {
		if err := writeOut(stdout, md); err != nil {
			return err
		}
	} else if err := os.WriteFile(outputPath, []byte(md), 0644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}

	if xlsxPath != "" {
		f, err := os.Create(xlsxPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", xlsxPath, err)
		}
		if err := reporting.WriteXLSX(f, report); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", xlsxPath, err)
		}
	}

	if verbose {
		log.New(os.Stderr, "[forecast] ", log.LstdFlags).Printf("report for run %s (%s)", report.RunID, report.ShortCode)
	}
	return nil
}
