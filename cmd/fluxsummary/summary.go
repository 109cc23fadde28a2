package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fluxcore/internal/blob"
	"fluxcore/internal/core"
	"fluxcore/internal/solver"
	"fluxcore/internal/summary"
)

type summaryFlags struct {
	model       string
	modelID     string
	solution    string
	variability string
	fraction    float64
	format      string
	names       bool
	threshold   float64
	floatFormat string
	width       int
}

func newSummaryCommand(a *app) *cobra.Command {
	f := &summaryFlags{}
	cmd := &cobra.Command{
		Use:   "summary METABOLITE",
		Short: "Print the producing and consuming reactions of a metabolite",
		Long: `summary reads a model either from the document store (--model KEY) or from
the catalog (--model-id ID). With --model, --solution and --variability name
document keys; with --model-id they name stored results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.summary(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "", "document key of the model")
	fl.StringVar(&f.modelID, "model-id", "", "catalog ID of the model")
	fl.StringVarP(&f.solution, "solution", "s", "", "solution document key, or stored solution name with --model-id")
	fl.StringVar(&f.variability, "variability", "", "variability document key, or stored result name with --model-id")
	fl.Float64Var(&f.fraction, "fraction", 0, "fraction of optimum for flux ranges, in (0, 1]")
	fl.StringVarP(&f.format, "format", "o", string(summary.FormatText), "output format: text, html, csv or json")
	fl.BoolVar(&f.names, "names", false, "show metabolite names instead of identifiers")
	fl.Float64Var(&f.threshold, "threshold", summary.DefaultThreshold, "hide fluxes smaller in magnitude")
	fl.StringVar(&f.floatFormat, "float-format", summary.DefaultFloatFormat, "fmt verb for numbers")
	fl.IntVar(&f.width, "width", summary.DefaultColumnWidth, "maximum width of text cells")
	cmd.MarkFlagsMutuallyExclusive("model", "model-id")
	cmd.MarkFlagsOneRequired("model", "model-id")
	return cmd
}

func (a *app) summary(cmd *cobra.Command, metaboliteID string, f *summaryFlags) error {
	ctx := cmd.Context()
	format, err := summary.ParseFormat(f.format)
	if err != nil {
		return err
	}
	opts := a.renderOptions(cmd, f)

	var s *summary.MetaboliteSummary
	if f.modelID != "" {
		s, err = a.svc.SummarizeStored(ctx, core.StoredSummaryRequest{
			ModelID:           f.modelID,
			MetaboliteID:      metaboliteID,
			SolutionName:      f.solution,
			FractionOfOptimum: f.fraction,
			VariabilityName:   f.variability,
		})
	} else {
		s, err = a.summarizeDocuments(cmd, metaboliteID, f)
	}
	if err != nil {
		return err
	}
	out, err := s.Render(format, opts)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = fmt.Fprint(a.stdout, out)
	return err
}

// summarizeDocuments resolves the model and flux data from document keys.
// A variability document is served through an analyzer so the requested
// fraction is checked against the stored one.
func (a *app) summarizeDocuments(cmd *cobra.Command, metaboliteID string, f *summaryFlags) (*summary.MetaboliteSummary, error) {
	ctx := cmd.Context()
	model, err := blob.LoadModel(ctx, a.docs, f.model)
	if err != nil {
		return nil, err
	}
	req := core.SummaryRequest{Model: model, MetaboliteID: metaboliteID}
	if f.solution != "" {
		sol, err := blob.LoadSolution(ctx, a.docs, f.solution)
		if err != nil {
			return nil, err
		}
		req.Solution = &sol
	}
	svc := a.svc
	switch {
	case f.variability != "":
		res, err := blob.LoadVariability(ctx, a.docs, f.variability)
		if err != nil {
			return nil, err
		}
		fraction := f.fraction
		if fraction == 0 {
			fraction = res.FractionOfOptimum
		}
		req.Variability = summary.FractionOfOptimum(fraction)
		opts := append(append([]core.Option(nil), a.serviceOpts...), core.WithAnalyzer(solver.Precomputed{Variability: &res}))
		svc = core.NewService(opts...)
	case f.fraction != 0:
		req.Variability = summary.FractionOfOptimum(f.fraction)
	}
	return svc.SummarizeMetabolite(ctx, req)
}

// renderOptions starts from the configured display parameters and applies
// the flags the user set explicitly.
func (a *app) renderOptions(cmd *cobra.Command, f *summaryFlags) summary.RenderOptions {
	opts := a.cfg.RenderOptions()
	fl := cmd.Flags()
	if fl.Changed("names") {
		opts.Names = f.names
	}
	if fl.Changed("threshold") {
		opts.Threshold = f.threshold
	}
	if fl.Changed("float-format") {
		opts.FloatFormat = f.floatFormat
	}
	if fl.Changed("width") {
		opts.ColumnWidth = f.width
	}
	return opts
}
