package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trungkien100823/koicourse/internal/quiz"
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "List persisted quiz scores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		recs, err := rt.store.Scores(cmd.Context(), rt.owner)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("no quiz scores recorded")
			return nil
		}

		for _, rec := range recs {
			result := "failed"
			if quiz.Passed(rec) {
				result = "passed"
			}
			fmt.Printf("%s  %d/%d (%d%%)  %s  %s\n",
				rec.QuizID, rec.CorrectAnswers, rec.TotalQuestions, rec.Percentage,
				result, rec.CompletedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}
