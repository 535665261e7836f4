package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/99minutos/auth-portal/internal/core/domain"
	"github.com/99minutos/auth-portal/internal/core/service"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage portal accounts",
	}
	cmd.AddCommand(newUserAddCmd(a), newUserListCmd(a))
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var (
		email         string
		role          string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readNewPassword(passwordStdin)
			if err != nil {
				return err
			}
			return a.withAccounts(cmd.Context(), func(ctx context.Context, accounts *service.AccountService) error {
				u, err := accounts.CreateUser(ctx, args[0], email, password, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "created user %s (id %s, role %s)\n", u.Username, u.ID, u.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address that receives 2FA codes")
	cmd.Flags().StringVar(&role, "role", domain.RoleUser, "account role: user or admin")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAccounts(cmd.Context(), func(ctx context.Context, accounts *service.AccountService) error {
				users, err := accounts.ListUsers(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\t2FA PENDING")
				for _, u := range users {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Email, u.Role, u.HasChallenge())
				}
				return tw.Flush()
			})
		},
	}
}

// withAccounts opens the configured store for the duration of fn.
func (a *app) withAccounts(ctx context.Context, fn func(context.Context, *service.AccountService) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()
	return fn(ctx, service.NewAccountService(store, store))
}

// readNewPassword reads one line from stdin, or prompts twice on the
// terminal without echo.
func (a *app) readNewPassword(fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	fmt.Fprint(a.stderr, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(a.stderr, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
