package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/churn"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/config"
	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/tracking"
)

type cli struct {
	configPath string
	logger     *log.Logger
	runner     *churn.Runner
}

func newRootCommand(logger *log.Logger) *cobra.Command {
	c := &cli{logger: logger}
	root := &cobra.Command{
		Use:           "churn",
		Short:         "Train and serve a customer churn classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "YAML configuration file")
	root.AddCommand(
		c.newPreprocessCommand(),
		c.newTrainCommand(),
		c.newEvaluateCommand(),
		c.newPredictCommand(),
		c.newInspectCommand(),
	)
	return root
}

// setup loads the configuration. A missing default file falls back to the
// built-in defaults; a missing file named by --config is an error.
func (c *cli) setup(cmd *cobra.Command) error {
	path := c.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			c.logger.Printf("no %s, using built-in defaults", path)
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.runner = churn.NewRunner(cfg, c.logger)
	return nil
}

func (c *cli) newPreprocessCommand() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Write the cleaned, encoded table for inspection (training reads raw data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.runner.Preprocess(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d rows (%d zero-tenure rows dropped) -> %s\n", res.Rows, res.Dropped, res.Output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "raw CSV (default paths.raw_data)")
	cmd.Flags().StringVar(&output, "output", "", "processed CSV (default paths.processed_data)")
	return cmd
}

func (c *cli) newTrainCommand() *cobra.Command {
	var opts churn.TrainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the pipeline on raw data and save the model artifact",
		Example: `  churn train
  churn train --input data/raw/extract.csv --output models/candidate.gob --importance-plot reports/importance.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.runner.Config
			sink, err := tracking.Open(cmd.Context(), cfg.Tracking.Endpoint, cfg.Tracking.RunName, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := sink.Close(); err != nil {
					c.logger.Printf("tracking: close: %v", err)
				}
			}()
			c.runner.Sink = sink

			res, err := c.runner.Train(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s (test accuracy %.4f)\n", cfg.Model.Name, res.Path, res.Report.Accuracy)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Input, "input", "", "raw CSV (default paths.raw_data)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "artifact path (default paths.model)")
	cmd.Flags().StringVar(&opts.ImportancePlot, "importance-plot", "", "write a feature-importance chart (.png, .svg or .pdf)")
	return cmd
}

func (c *cli) newEvaluateCommand() *cobra.Command {
	var opts churn.EvaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a saved artifact on labelled data",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.runner.Evaluate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), res.Report.String())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Input, "input", "", "labelled raw CSV (default paths.raw_data)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "artifact path (default paths.model)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "score every row instead of the held-out split")
	cmd.Flags().StringVar(&opts.Plot, "plot", "", "write a metrics chart (.png, .svg or .pdf)")
	return cmd
}

func (c *cli) newPredictCommand() *cobra.Command {
	var opts churn.PredictOptions
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict churn for raw customer records",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.runner.Predict(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, err = res.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Input, "input", "", "raw CSV (default paths.raw_data)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "artifact path (default paths.model)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "also write predictions to this CSV")
	return cmd
}

func (c *cli) newInspectCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show a saved artifact's metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.runner.Inspect(path)
			if err != nil {
				return err
			}
			return churn.Describe(cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().StringVar(&path, "model", "", "artifact path (default paths.model)")
	return cmd
}
