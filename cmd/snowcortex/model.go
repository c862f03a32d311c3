package main

import (
	"context"
	"fmt"

	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// modelFlags are shared by every command that talks to Cortex
type modelFlags struct {
	model         string
	authenticator string
	account       string
	warehouse     string
	role          string
	temperature   float64
	maxTokens     int
	stop          []string
	noCache       bool
}

var flagsByCommand = map[*cobra.Command]*modelFlags{}

func setupModelFlags(cmd *cobra.Command) {
	f := &modelFlags{}
	flagsByCommand[cmd] = f

	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Cortex model name (default from config)")
	cmd.Flags().StringVar(&f.authenticator, "authenticator", "", "Snowflake authenticator (e.g. username_password_mfa)")
	cmd.Flags().StringVar(&f.account, "account", "", "Snowflake account identifier")
	cmd.Flags().StringVar(&f.warehouse, "warehouse", "", "Snowflake warehouse")
	cmd.Flags().StringVar(&f.role, "role", "", "Snowflake role")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature (0-1)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "maximum tokens to generate")
	cmd.Flags().StringArrayVar(&f.stop, "stop", nil, "stop sequence, may be repeated")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "bypass the reply cache")
}

// chatOptions layers flag overrides on top of the configuration
func (f *modelFlags) chatOptions(cmd *cobra.Command) []cortex.Option {
	opts := cfg.ChatOptions()

	if f.model != "" {
		opts = append(opts, cortex.WithModel(f.model))
	}
	if f.authenticator != "" {
		opts = append(opts, cortex.WithAuthenticator(f.authenticator))
	}
	if f.account != "" {
		opts = append(opts, cortex.WithAccount(f.account))
	}
	if f.warehouse != "" {
		opts = append(opts, cortex.WithWarehouse(f.warehouse))
	}
	if f.role != "" {
		opts = append(opts, cortex.WithRole(f.role))
	}
	if cmd.Flags().Changed("temperature") {
		opts = append(opts, cortex.WithTemperature(f.temperature))
	}
	if cmd.Flags().Changed("max-tokens") {
		opts = append(opts, cortex.WithMaxTokens(f.maxTokens))
	}

	return opts
}

// stopSequences prefers the --stop flag over the configured list
func (f *modelFlags) stopSequences() []string {
	if len(f.stop) > 0 {
		return f.stop
	}
	return cfg.Cortex.Stop
}

// newChatModel builds the adapter for cmd. The returned cleanup closes the
// model and any cache it opened.
func newChatModel(ctx context.Context, cmd *cobra.Command) (*cortex.ChatModel, func(), error) {
	f, ok := flagsByCommand[cmd]
	if !ok {
		return nil, nil, fmt.Errorf("command %s has no model flags", cmd.Name())
	}

	opts := f.chatOptions(cmd)

	var sqliteCache *cortex.SQLiteCache
	if cfg.Cache.Enabled && !f.noCache {
		c, err := cortex.OpenSQLiteCache(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, ExitError{Code: ExitCodeConfigError, Err: err}
		}
		sqliteCache = c
		opts = append(opts, cortex.WithCache(c))
	}

	chat, err := cortex.New(ctx, opts...)
	if err != nil {
		if sqliteCache != nil {
			_ = sqliteCache.Close()
		}
		return nil, nil, classify(err)
	}

	cleanup := func() {
		if err := chat.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close snowflake session")
		}
		if sqliteCache != nil {
			stats := sqliteCache.Stats()
			log.Debug().
				Int64("hits", stats.Hits).
				Int64("misses", stats.Misses).
				Msg("Reply cache statistics")
			if err := sqliteCache.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close reply cache")
			}
		}
	}

	return chat, cleanup, nil
}
