package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/blackbox/store"
)

var bestCmd = &cobra.Command{
	Use:   "best <store-file>",
	Short: "Print the best example recorded in a store",
	Long: `Loads the given store file (.json or .msgpack) and prints the
parameter values and reward of the best trial committed so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runBest,
}

func init() {
	rootCmd.AddCommand(bestCmd)
}

func runBest(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	best, ok := store.BestExample(doc.Examples)
	if !ok {
		return fmt.Errorf("store has no completed trials yet")
	}

	out := map[string]any{"values": best.Values}
	if best.Loss != nil {
		out["loss"] = rewardOut(best.Loss)
	}
	if best.Gain != nil {
		out["gain"] = rewardOut(best.Gain)
	}
	if len(best.Memo) > 0 {
		out["memo"] = best.Memo
	}
	out["committed"] = time.Unix(0, int64(best.Timestamp*float64(time.Second))).Format(time.RFC3339)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format best example: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func rewardOut(reward []float64) any {
	if len(reward) == 1 {
		return reward[0]
	}
	return reward
}

func loadDocument(path string) (*store.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store file %s: %w", path, err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, err
	}
	return st.Load()
}
