package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

func newRecapCmd(c *cli) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Print the weekly recap for a user from the configured storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			recap, err := a.journalSvc.WeeklyRecap(cmd.Context(), domain.UserID(user))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !recap.Empty {
				fmt.Fprintf(out, "Recap of %d entries (%s to %s)\n\n",
					recap.EntryCount,
					recap.From.Format("Jan 2"),
					recap.To.Format("Jan 2"),
				)
			}
			fmt.Fprintln(out, recap.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
