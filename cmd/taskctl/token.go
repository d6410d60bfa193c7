package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	authUC "github.com/fastygo/taskbot/usecase/auth"
)

func tokenCmd() *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			token, expires, err := authUC.New(e.cfg.JWT.Secret, e.cfg.JWT.Issuer, e.logger).IssueToken(owner, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id the token identifies")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
