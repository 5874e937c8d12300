package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/ngoduongkha/genesis-snapshot/database"
	"github.com/ngoduongkha/genesis-snapshot/node"
)

func rootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesisgen",
		Short: "Builds a genesis json from the accounts and balances of a running node.",
		Long: `genesisgen reads every account of a running graphene node over its websocket API
and writes them, with their non-zero balances, into the initial accounts and
initial balances of a genesis json. Other genesis fields are kept as they are.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 && os.Getenv(envPrefix+"_GENESIS_JSON_PATH") == "" {
				return cmd.Help()
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			setupLogging(cfg.Verbosity)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return run(ctx, cfg, stdout)
		},
	}
	cmd.SetOut(stdout)

	addFlags(cmd)

	return cmd
}

func setupLogging(verbosity int) {
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), log.StreamHandler(os.Stderr, log.TerminalFormat(false))))
}

// run loads the seed genesis before touching the node and writes the output
// only once the whole build succeeded.
func run(ctx context.Context, cfg Config, stdout io.Writer) error {
	g, err := database.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return err
	}
	log.Info("Loaded genesis", "path", cfg.GenesisPath, "accounts", len(g.InitialAccounts), "balances", len(g.InitialBalances))

	client, err := node.Dial(ctx, cfg.Endpoint, cfg.User, cfg.Password)
	if err != nil {
		return err
	}
	defer client.Close()

	buildCfg := cfg.buildConfig()
	buildCfg.DebugOut = stdout

	stats, err := database.Rebuild(ctx, g, client, buildCfg)
	if err != nil {
		return err
	}
	log.Info("Built genesis accounts", "seen", stats.Seen, "reserved", stats.Reserved, "accounts", stats.Accounts, "balances", stats.Balances, "append", cfg.Append)

	if err := g.Save(cfg.OutputPath); err != nil {
		return err
	}
	log.Info("Wrote genesis", "path", cfg.OutputPath, "accounts", len(g.InitialAccounts), "balances", len(g.InitialBalances))

	return nil
}
