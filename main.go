package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"intent-trader/internal/cli"
	"intent-trader/internal/config"
	"intent-trader/internal/logging"
)

func main() {
	// .env is optional; real deployments configure through config.toml or env.
	_ = godotenv.Load()

	configDir := configDirFromArgs()
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:    cfg.Logging.Level,
		Console:  cfg.Logging.Console,
		File:     cfg.Logging.File,
		FilePath: config.DefaultConfigDir() + "/logs/trader.log",
		MaxSize:  100, MaxBackups: 7, MaxAge: 30,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDirFromArgs peeks at --config before cobra parses flags, because the
// config is needed to construct the command tree itself.
func configDirFromArgs() string {
	flags := pflag.NewFlagSet("pre", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Usage = func() {}
	configDir := flags.String("config", "", "")
	_ = flags.Parse(os.Args[1:])
	return *configDir
}
