package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PabloGalante/mindbloss/internal/config"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

// cli holds state shared by every subcommand.
type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "mindbloss",
		Short: "Mood check-ins, guided reflection protocols and weekly journal recaps",
		Long: `mindbloss routes a mood check-in to a guide persona and reflection protocol,
walks through the protocol steps and asks a completion service for a closing
reflection. Entries are kept in a capped per-user journal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("llm", "", "completion provider (mock, openai, vertex)")
	flags.String("storage", "", "storage backend (memory, redis, sqlite, firestore)")
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("llm.provider", flags.Lookup("llm"))
	_ = c.v.BindPFlag("storage.backend", flags.Lookup("storage"))

	root.AddCommand(
		newServeCmd(c),
		newRouteCmd(c),
		newRecapCmd(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := observability.Init(observability.Options{
		Mode:     cfg.LogMode,
		Level:    cfg.LogLevel,
		Redact:   cfg.LogRedact,
		HashSalt: cfg.LogHashSalt,
	}); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
