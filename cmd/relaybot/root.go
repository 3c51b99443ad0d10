package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/relaybot/core/bootstrap"
	"github.com/m3rciful/relaybot/core/buildinfo"
	corecmd "github.com/m3rciful/relaybot/core/cmd"
	coreconfig "github.com/m3rciful/relaybot/core/config"
	tg "github.com/m3rciful/relaybot/core/telegram"
	"github.com/m3rciful/relaybot/internal/app"
	"github.com/m3rciful/relaybot/internal/directory"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "relaybot",
		Short:        "Telegram support relay between users and administrators",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "Config file path (defaults to $CONFIG_PATH, then "+defaultConfigPath+").")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return corecmd.Run(corecmd.Options{
				ConfigPath:        path,
				ConfigEnvVar:      "CONFIG_PATH",
				DefaultConfigPath: defaultConfigPath,
				LoadConfig:        coreconfig.Load,
				Bootstrap:         bootstrapApp,
			})
		},
	}
}

func bootstrapApp(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	bot, err := tg.NewBot(cfg)
	if err != nil {
		_ = directory.Close(res.Directory)
		return nil, err
	}
	a, err := app.New(cfg, bot, res.Directory)
	if err != nil {
		_ = directory.Close(res.Directory)
		return nil, err
	}
	return a, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "relaybot %s\n", buildinfo.String())
			return err
		},
	}
}
