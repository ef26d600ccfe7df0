package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"redink/internal/diff"
	"redink/internal/textutil"
)

// newCompareCommand diffs a transcription against reference text
// without touching the queue, useful for tuning reference cleanup.
func newCompareCommand() *cobra.Command {
	var showCorrect bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "compare <transcription-file> <reference-file>",
		Short:       "Diff transcribed text against reference text",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ocrText, err := readTextArgument(args[0])
			if err != nil {
				return err
			}
			refText, err := readTextArgument(args[1])
			if err != nil {
				return err
			}

			ocrWords := diff.SplitWords(ocrText)
			refWords := diff.SplitWords(textutil.CleanReferenceText(refText))
			ops := diff.Compute(ocrWords, refWords)
			stats := diff.Tally(ops)

			if asJSON {
				return writeJSON(cmd, struct {
					Ops   []diff.Op  `json:"ops"`
					Stats diff.Stats `json:"stats"`
				}{Ops: ops, Stats: stats})
			}

			rows := make([][]string, 0, len(ops))
			for _, op := range ops {
				if op.Type == diff.Correct && !showCorrect {
					continue
				}
				rows = append(rows, []string{
					string(op.Type),
					formatIndex(op.OcrIndex),
					derefWord(op.OcrWord),
					formatIndex(op.RefIndex),
					derefWord(op.ReferenceWord),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				table := renderTable(
					[]string{"Type", "OCR #", "OCR Word", "Ref #", "Ref Word"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
			}

			fmt.Fprintf(out, "Correct: %d  Wrong: %d  Missing: %d  Extra: %d\n",
				stats.Correct, stats.Wrong, stats.Missing, stats.Extra)
			fmt.Fprintf(out, "Accuracy: %.1f%%\n", stats.AccuracyPct())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCorrect, "all", false, "Include correct words in the table")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func formatIndex(idx *int) string {
	if idx == nil {
		return ""
	}
	return strconv.Itoa(*idx)
}

func derefWord(word *string) string {
	if word == nil {
		return ""
	}
	return *word
}
