package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var examplesCmd = &cobra.Command{
	Use:   "examples <store-file>",
	Short: "List the trials recorded in a store",
	Args:  cobra.ExactArgs(1),
	RunE:  runExamples,
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}

func runExamples(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	names := make([]string, 0, len(doc.Params))
	for name := range doc.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("params: %s\n", strings.Join(names, ", "))
	fmt.Printf("examples: %d\n", len(doc.Examples))

	for i := range doc.Examples {
		ex := &doc.Examples[i]
		reward := ""
		switch {
		case ex.Loss != nil:
			reward = fmt.Sprintf("loss=%v", rewardOut(ex.Loss))
		case ex.Gain != nil:
			reward = fmt.Sprintf("gain=%v", rewardOut(ex.Gain))
		}
		committed := time.Unix(0, int64(ex.Timestamp*float64(time.Second))).Format(time.RFC3339)
		fmt.Printf("%4d  %s  %s  %v\n", i, committed, reward, ex.Values)
	}
	return nil
}
