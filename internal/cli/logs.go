package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/auth-portal/internal/core/service"
)

func newLogsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the most recent audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAccounts(cmd.Context(), func(ctx context.Context, accounts *service.AccountService) error {
				entries, err := accounts.RecentLogs(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTIME (UTC)\tUSER\tACTION")
				for _, e := range entries {
					user := e.Username
					if user == "" {
						user = "-"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Timestamp.UTC().Format(time.DateTime), user, e.Action)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of entries to show")
	return cmd
}
