package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mamadbah2/loomstock/internal/app"
	"github.com/mamadbah2/loomstock/internal/domain/models"
	"github.com/mamadbah2/loomstock/internal/service/production"
	"github.com/mamadbah2/loomstock/internal/service/reporting"
)

// Exit codes.
const (
	exitFailure   = 1
	exitInvalid   = 2
	exitIntegrity = 3
)

type builder func(ctx context.Context, envFile string, verbose bool) (*app.App, *zap.Logger, error)

type rootFlags struct {
	envFile string
	verbose bool
	json    bool
}

func newRootCmd(build builder) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "loomctl",
		Short: "Weekly loom production and yarn stock calculator",
		Long: `loomctl calculates a week's woven output and yarn balance and carries
loom and yarn stock forward from the period log.

Storage and constants come from the same environment as the server
(STORE_BACKEND, SQLITE_PATH, TOTAL_MACHINES, WASTAGE_FRACTION, YARN_PER_METER).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "print JSON instead of text")

	withApp := func(cmd *cobra.Command, fn func(*app.App) error) error {
		a, log, err := build(cmd.Context(), flags.envFile, flags.verbose)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(context.Background()); cerr != nil && log != nil {
				log.Warn("close period log", zap.Error(cerr))
			}
			if log != nil {
				_ = log.Sync()
			}
		}()
		return fn(a)
	}

	root.AddCommand(
		newCalculateCmd(flags, withApp),
		newCarryForwardCmd(flags, withApp),
		newHistoryCmd(flags, withApp),
	)
	return root
}

type appRunner func(cmd *cobra.Command, fn func(*app.App) error) error

func newCalculateCmd(flags *rootFlags, withApp appRunner) *cobra.Command {
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate a week from a YAML or JSON file and append it to the log",
		Long: `Reads the week's entries, fills unlisted looms and missing opening stock
from the carry-forward, and prints the summary.

Example week file:

  new_yarn_delivered: 20
  looms:
    - loom_id: 1
      lengths_text: "80, 90, 75"
    - loom_id: 2
      added_capacity: 10
      produced_lengths: [60, 61]`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, err := readWeekFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				run := a.Production.Submit
				if dryRun {
					run = a.Production.Preview
				}
				res, err := run(cmd.Context(), form)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res, flags.json)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `week file, "-" for stdin`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "calculate without appending to the log")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCarryForwardCmd(flags *rootFlags, withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "carry-forward",
		Short: "Show the yarn and loom stock the next week starts from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				cf, err := a.Production.CarryForward(cmd.Context())
				if err != nil {
					return err
				}
				if flags.json {
					return writeJSON(cmd.OutOrStdout(), cf)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reporting.FormatCarryForward(cf))
				return err
			})
		},
	}
}

func newHistoryCmd(flags *rootFlags, withApp appRunner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent weekly summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				if flags.json {
					summaries, err := a.Production.History(cmd.Context(), limit)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), summaries)
				}
				out, err := a.Reporting.HistoryReport(cmd.Context(), limit)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", models.DefaultHistoryLimit, "number of weeks, 0 for all")
	return cmd
}

// readWeekFile decodes a week file. JSON is valid YAML so both are accepted.
func readWeekFile(path string, stdin io.Reader) (models.PeriodForm, error) {
	var form models.PeriodForm

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return form, fmt.Errorf("read week file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&form); err != nil && !errors.Is(err, io.EOF) {
		return form, fmt.Errorf("parse week file %s: %w", path, err)
	}
	return form, nil
}

func printResult(w io.Writer, res production.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}

	if _, err := fmt.Fprintln(w, reporting.FormatSummary(res.Summary, res.Stocks)); err != nil {
		return err
	}
	for _, p := range res.ParseErrors {
		fmt.Fprintf(w, "warning: loom %d lengths %q ignored: %s\n", p.LoomID, p.Text, p.Message)
	}
	for _, s := range res.Shortfalls {
		switch s.Kind {
		case models.ShortfallYarn:
			fmt.Fprintf(w, "shortfall: yarn %s kg\n", reporting.Yarn(s.Amount))
		default:
			fmt.Fprintf(w, "shortfall: loom %d stock %s\n", s.LoomID, reporting.Length(s.Amount))
		}
	}
	if res.Persisted {
		fmt.Fprintf(w, "saved period %s\n", res.Summary.ID)
	} else {
		fmt.Fprintln(w, "dry run, nothing saved")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCode(err error) int {
	var invalid *models.InvalidInputError
	var integrity *models.DataIntegrityError
	switch {
	case errors.As(err, &invalid):
		return exitInvalid
	case errors.As(err, &integrity):
		return exitIntegrity
	default:
		return exitFailure
	}
}
