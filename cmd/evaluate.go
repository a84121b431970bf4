package main

import (
	"github.com/spf13/cobra"

	app "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/document"
	"github.com/okian/orgchart/internal/report"
)

func newEvaluateCmd(c *cli) *cobra.Command {
	var flags struct {
		pred  string
		truth string
		json  bool
	}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a predicted chart against the ground truth",
		Long: "Matches employee names between the two documents, then reports coverage\n" +
			"and manager relationship accuracy. Files ending in .json are read as JSON\n" +
			"charts, anything else as markdown.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pred, err := readDocument(flags.pred)
			if err != nil {
				return err
			}
			truth, err := readDocument(flags.truth)
			if err != nil {
				return err
			}

			svc, err := c.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			ev, err := svc.Evaluate(cmd.Context(), app.EvaluateInput{Predicted: pred, Truth: truth})
			if err != nil {
				return err
			}
			if flags.json {
				return report.Evaluation(cmd.OutOrStdout(), ev.RunID, ev.Cached, ev.Report)
			}
			return svc.RenderText(cmd.OutOrStdout(), ev)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.pred, "pred", "", "predicted chart document (required)")
	f.StringVar(&flags.truth, "true", "", "ground-truth chart document (required)")
	f.BoolVar(&flags.json, "json", false, "write the report as JSON")
	_ = cmd.MarkFlagRequired("pred")
	_ = cmd.MarkFlagRequired("true")
	return cmd
}

func readDocument(path string) (app.Document, error) {
	raw, format, err := document.ReadFile(path)
	if err != nil {
		return app.Document{}, err
	}
	return app.Document{Body: raw, Format: format}, nil
}
