package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/blackbox"
)

var (
	demoFile      string
	demoAlgorithm string
	demoTrials    int
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a demonstration optimization loop",
	Long: `Runs sequential trials of a toy problem (minimize (x-7)^2 for an
integer x in [0, 10)) against a shared store, then prints the best trial.
Running it again, or concurrently from several shells, extends the same
history.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoFile, "file", "demo", "Store identity (data file is derived from it)")
	demoCmd.Flags().StringVar(&demoAlgorithm, "algorithm", "random", "Algorithm preset to run")
	demoCmd.Flags().IntVar(&demoTrials, "trials", 25, "Number of sequential trials")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	opt, err := blackbox.New(demoFile)
	if err != nil {
		return err
	}
	slog.Info("Starting demo", "algorithm", demoAlgorithm, "trials", demoTrials, "dataFile", opt.DataFile())

	for i := 0; i < demoTrials; i++ {
		if err := opt.Run(demoAlgorithm); err != nil {
			return err
		}
		x, err := opt.RandRange("x", 0, 10, 1)
		if err != nil {
			return err
		}
		loss := float64((x - 7) * (x - 7))
		if err := opt.Minimize(loss); err != nil {
			return err
		}
		fmt.Printf("trial %2d: x=%d loss=%g\n", i+1, x, loss)
	}

	best, ok := opt.BestExample()
	if !ok {
		return fmt.Errorf("no trials recorded")
	}
	fmt.Printf("best after %d examples: x=%v loss=%v\n", opt.NumExamples(), best.Values["x"], rewardOut(best.Loss))
	return nil
}
