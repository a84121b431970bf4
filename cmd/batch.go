package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	app "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/domain/types"
)

// batchEntry is one line of the JSON batch output.
type batchEntry struct {
	Predicted  string            `json:"predicted"`
	Truth      string            `json:"truth"`
	Evaluation *types.Evaluation `json:"evaluation,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func newBatchCmd(c *cli) *cobra.Command {
	var flags struct {
		pairs []string
		json  bool
	}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate several predicted/ground-truth pairs in parallel",
		Long: "Each --pair is PREDICTED:TRUTH. Pairs run on worker_count workers; a pair\n" +
			"that fails is reported and never stops the others.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := make([]batchEntry, len(flags.pairs))
			inputs := make([]app.EvaluateInput, 0, len(flags.pairs))
			valid := make([]int, 0, len(flags.pairs))
			for i, p := range flags.pairs {
				pred, truth, ok := strings.Cut(p, ":")
				entries[i] = batchEntry{Predicted: pred, Truth: truth}
				if !ok || pred == "" || truth == "" {
					entries[i].Error = fmt.Sprintf("invalid pair %q, want PREDICTED:TRUTH", p)
					continue
				}
				in, err := readPair(pred, truth)
				if err != nil {
					entries[i].Error = err.Error()
					continue
				}
				inputs = append(inputs, in)
				valid = append(valid, i)
			}

			svc, err := c.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			evaluations := make([]*app.Evaluation, len(entries))
			for j, res := range svc.EvaluateBatch(cmd.Context(), inputs) {
				i := valid[j]
				if res.Err != nil {
					entries[i].Error = res.Err.Error()
					continue
				}
				evaluations[i] = res.Evaluation
				ev := types.Evaluation{
					RunID:  res.Evaluation.RunID,
					Cached: res.Evaluation.Cached,
					Report: types.ReportFromScoring(res.Evaluation.Report),
				}
				entries[i].Evaluation = &ev
			}

			out := cmd.OutOrStdout()
			if flags.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(entries); err != nil {
					return err
				}
			} else {
				for i, e := range entries {
					fmt.Fprintf(out, "== %s vs %s ==\n", e.Predicted, e.Truth)
					if e.Error != "" {
						fmt.Fprintf(out, "error: %s\n\n", e.Error)
						continue
					}
					if err := svc.RenderText(out, evaluations[i]); err != nil {
						return err
					}
					fmt.Fprintln(out)
				}
			}

			failed := 0
			for _, e := range entries {
				if e.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d pairs failed", failed, len(entries))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&flags.pairs, "pair", nil, "PREDICTED:TRUTH document pair (repeatable, required)")
	f.BoolVar(&flags.json, "json", false, "write results as JSON")
	_ = cmd.MarkFlagRequired("pair")
	return cmd
}

func readPair(pred, truth string) (app.EvaluateInput, error) {
	p, err := readDocument(pred)
	if err != nil {
		return app.EvaluateInput{}, err
	}
	t, err := readDocument(truth)
	if err != nil {
		return app.EvaluateInput{}, err
	}
	return app.EvaluateInput{Predicted: p, Truth: t}, nil
}
