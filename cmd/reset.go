package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <course-id>",
	Short: "Reset local progress for a course",
	Long: "Reset deletes the cached chapter completions, the course completion\n" +
		"timestamp and the quiz scores for a course. It is local-only and\n" +
		"irreversible; the backend is not contacted.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("reset is irreversible; re-run with --yes to confirm")
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.store.ResetCourse(cmd.Context(), rt.owner, args[0]); err != nil {
			return err
		}
		fmt.Printf("local progress for course %s cleared\n", args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the destructive reset")
}
