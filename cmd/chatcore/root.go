package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haowjy/meridian-chat-core/internal/logger"
)

const rootLongDesc string = `chatcore streams chat completions as response events and extracts the
source files a response contains.

  chatcore stream "write hello world"    Stream a generation as JSON events
  chatcore extract reply.md              Split a saved reply into segments and sources
  chatcore backends                      List the available backends

Settings come from flags, CHATCORE_* environment variables (a .env file is
loaded first) and an optional chatcore.yaml, in that order.`

const rootShortDesc string = "chatcore - chat streaming core"

// app holds the state shared by every subcommand once flags are parsed.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logger.Nop()}

	cmd := &cobra.Command{
		Use:          "chatcore",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file (default ./chatcore.yaml when present)")
	pf.String("env-file", ".env", "Environment file loaded before reading CHATCORE_* variables")
	addFlags(pf, "debug", "log-json", "log-pretty")

	cmd.AddCommand(newStreamCmd(a))
	cmd.AddCommand(newExtractCmd(a))
	cmd.AddCommand(newBackendsCmd(a))

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("could not get env-file flag: %w", err)
	}
	if err := loadDotEnv(envFile); err != nil {
		return err
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("could not get config flag: %w", err)
	}
	v, err := initViper(configFile)
	if err != nil {
		return err
	}
	bindFlags(v, cmd.Flags())

	a.v = v
	a.logger = logger.New(
		logger.WithDebug(v.GetBool(keyLogDebug)),
		logger.WithJSON(v.GetBool(keyLogJSON)),
		logger.WithPretty(v.GetBool(keyLogPretty)),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	return nil
}
