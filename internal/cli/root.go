// Package cli implements the authportal command line: the web server and the
// operator commands that manage accounts and read the audit log.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/99minutos/auth-portal/internal/pkg/config"
	"github.com/99minutos/auth-portal/pkg/logger"
)

type app struct {
	lookuper envconfig.Lookuper
	cfg      *config.Config
	log      zerolog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(envconfig.OsLookuper(), os.Stdin, os.Stdout, os.Stderr)
}

func newRootCommand(l envconfig.Lookuper, in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{lookuper: l, stdin: in, stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "authportal",
		Short:         "Login portal with emailed two-factor codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.AddCommand(
		newServeCmd(a),
		newUserCmd(a),
		newLogsCmd(a),
	)
	return cmd
}

func (a *app) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadWith(ctx, a.lookuper)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg
	a.log = logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
		Output: a.stderr,
		File:   cfg.LogFile,
	})
	return nil
}
