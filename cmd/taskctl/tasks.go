package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

func tasksCmd() *cobra.Command {
	var (
		owner string
		done  bool
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List an owner's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			var tasks []domain.Task
			if done {
				tasks, err = e.stores.Tasks.ListDone(cmd.Context(), owner, repository.DoneListLimit)
			} else {
				tasks, err = e.stores.Tasks.ListActive(cmd.Context(), owner)
			}
			if err != nil {
				return err
			}

			loc := e.cfg.Location()
			if user, err := e.stores.Users.GetByID(cmd.Context(), owner); err == nil {
				loc = user.Location(loc)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDUE\tURGENCY\tCATEGORY\tTITLE")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.DueAt.In(loc).Format("2006-01-02 15:04"), t.Urgency, t.Category, t.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	cmd.Flags().BoolVar(&done, "done", false, "list completed tasks instead of active ones")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
