package main

import (
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngoduongkha/genesis-snapshot/database"
	"github.com/ngoduongkha/genesis-snapshot/node"
)

const (
	flagGenesisPath = "genesis-json-path"
	flagOutputPath  = "output-json-path"
	flagEndpoint    = "server-rpc-endpoint"
	flagUser        = "server-rpc-user"
	flagPassword    = "server-rpc-password"
	flagAppend      = "append"
	flagDebug       = "debug"
	flagLookupLimit = "lookup-limit"
	flagBatchSize   = "batch-size"
	flagVerbosity   = "verbosity"
	flagConfig      = "config"

	envPrefix = "GENESISGEN"
)

// Config is everything one run needs, read once from flags, environment and
// an optional config file.
type Config struct {
	GenesisPath string
	OutputPath  string
	Endpoint    string
	User        string
	Password    string
	Append      bool
	Debug       bool
	LookupLimit uint64
	BatchSize   int
	Verbosity   int
}

func (c Config) Validate() error {
	if c.GenesisPath == "" {
		return errors.Errorf("--%s is required", flagGenesisPath)
	}
	if c.OutputPath == "" {
		return errors.Errorf("--%s is required", flagOutputPath)
	}
	if c.Endpoint == "" {
		return errors.Errorf("--%s must not be empty", flagEndpoint)
	}
	if c.BatchSize < 0 {
		return errors.Errorf("--%s cannot be negative", flagBatchSize)
	}
	if c.Verbosity < int(log.LvlCrit) || c.Verbosity > int(log.LvlTrace) {
		return errors.Errorf("--%s must be between %d and %d", flagVerbosity, log.LvlCrit, log.LvlTrace)
	}

	return nil
}

func (c Config) buildConfig() database.BuildConfig {
	return database.BuildConfig{
		Append: c.Append,
		Debug:  c.Debug,
		Collect: database.CollectOptions{
			LookupLimit: c.LookupLimit,
			BatchSize:   c.BatchSize,
		},
	}
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP(flagGenesisPath, "g", "", "genesis json path")
	flags.StringP(flagOutputPath, "o", "", "output json path")
	flags.StringP(flagEndpoint, "s", node.DefaultEndpoint, "Server websocket RPC endpoint")
	flags.StringP(flagUser, "u", "", "Server Username")
	flags.StringP(flagPassword, "p", "", "Server Password")
	flags.BoolP(flagAppend, "a", false, "output with append mode")
	flags.BoolP(flagDebug, "d", false, "print all account info")
	flags.Uint64(flagLookupLimit, 1000, "account names requested per lookup_accounts call")
	flags.Int(flagBatchSize, 50, "account names requested per get_full_accounts call, 0 for all at once (nodes cap this with api_limit_get_full_accounts, 50 by default)")
	flags.Int(flagVerbosity, int(log.LvlInfo), "log level, 0=crit 1=error 2=warn 3=info 4=debug 5=trace")
	flags.String(flagConfig, "", "optional config file holding any of the flags above")
}

func loadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, errors.Wrap(err, "unable to bind flags")
	}

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "unable to read config %s", path)
		}
	}

	cfg := Config{
		GenesisPath: v.GetString(flagGenesisPath),
		OutputPath:  v.GetString(flagOutputPath),
		Endpoint:    v.GetString(flagEndpoint),
		User:        v.GetString(flagUser),
		Password:    v.GetString(flagPassword),
		Append:      v.GetBool(flagAppend),
		Debug:       v.GetBool(flagDebug),
		LookupLimit: v.GetUint64(flagLookupLimit),
		BatchSize:   v.GetInt(flagBatchSize),
		Verbosity:   v.GetInt(flagVerbosity),
	}

	return cfg, cfg.Validate()
}
