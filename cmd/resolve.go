package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	app "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/document"
	"github.com/okian/orgchart/internal/domain/types"
)

func newResolveCmd(c *cli) *cobra.Command {
	var flags struct {
		input  string
		output string
		format string
	}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve manager assertions into a chart document",
		Long: "Reads assertions as JSON, either a bare list of\n" +
			"{\"subject\", \"manager\", \"confidence\"} objects or an object with\n" +
			"\"roster\", \"assertions\" and \"annotations\". Diagnostics go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := document.FormatOf(flags.output)
			if flags.format != "" {
				f, err := document.ParseFormat(flags.format)
				if err != nil {
					return err
				}
				format = f
			}

			raw, err := os.ReadFile(flags.input)
			if err != nil {
				return fmt.Errorf("read %s: %w", flags.input, err)
			}
			set, err := types.DecodeAssertionSet(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", flags.input, err)
			}

			svc, err := c.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.Resolve(cmd.Context(), app.ResolveInput{
				Roster:      set.Roster,
				Assertions:  types.AssertionsToModel(set.Assertions),
				Annotations: set.Annotations,
			})
			if err != nil {
				return err
			}
			for _, d := range res.Diagnostics {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", d.Kind, d.Message)
			}

			if flags.output == "" {
				return document.Encode(cmd.OutOrStdout(), res.Chart, format)
			}
			return writeFile(flags.output, func(w io.Writer) error {
				return document.Encode(w, res.Chart, format)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.input, "input", "", "assertions JSON file (required)")
	f.StringVar(&flags.output, "output", "", "chart document to write (default stdout)")
	f.StringVar(&flags.format, "format", "", "output format: md or json (default from --output extension, else md)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}
