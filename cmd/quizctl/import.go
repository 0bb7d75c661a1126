package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vapmail16/synonym-quest-sub000/internal/word"
	wordrepo "github.com/vapmail16/synonym-quest-sub000/internal/word/repo"
)

func importWordsCmd() *cobra.Command {
	var sheet string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-words [file.xlsx]",
		Short: "Import words from a spreadsheet",
		Long: `Import words from an .xlsx workbook.

The first row is a header. Columns are word, synonyms, difficulty,
meaning, category and tags; synonyms are comma separated and may carry
a type suffix such as "fast:exact".

Examples:
  quizctl import-words words.xlsx
  quizctl import-words words.xlsx --sheet Advanced --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			inputs, problems, err := word.ParseWorkbook(f, sheet)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintln(out, "skip:", p)
			}
			if dryRun {
				fmt.Fprintf(out, "%d rows parsed, %d skipped (dry run)\n", len(inputs), len(problems))
				return nil
			}
			e, done, err := openEnv()
			if err != nil {
				return err
			}
			defer done()
			words := wordrepo.NewWordRepo(e.db)
			if err := words.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			res, err := word.NewService(words, nil, nil).Import(cmd.Context(), inputs)
			if err != nil {
				return err
			}
			for _, msg := range res.Errors {
				fmt.Fprintln(out, "error:", msg)
			}
			e.logger.Infow("words imported", "file", args[0], "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
			fmt.Fprintf(out, "created %d, updated %d, skipped %d\n", res.Created, res.Updated, res.Skipped+len(problems))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the workbook without writing")
	return cmd
}
