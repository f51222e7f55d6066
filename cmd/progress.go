package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trungkien100823/koicourse/internal/store"
)

var progressCmd = &cobra.Command{
	Use:   "progress <course-id>",
	Short: "Reconcile and print course completion state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		courseID := args[0]
		enrollID, _ := cmd.Flags().GetString("enrollment")
		if enrollID == "" {
			enrollID = courseID
		}

		view, err := rt.rec.Reconcile(cmd.Context(), rt.owner, enrollID, courseID)
		if err != nil {
			return err
		}

		for _, ch := range view.Chapters {
			mark := " "
			if ch.Status == store.StatusDone {
				mark = "x"
			}
			fmt.Printf("[%s] %s\n", mark, ch.ChapterID)
		}
		fmt.Printf("%d%% complete", view.Percentage)
		if view.Completed {
			fmt.Print(" — course completed, final exam unlocked")
		}
		if view.Stale {
			fmt.Print(" (offline, last-known state)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	progressCmd.Flags().String("enrollment", "", "Enrollment id (defaults to the course id)")
}
