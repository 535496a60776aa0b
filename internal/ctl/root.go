package ctl

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	cacheRoot  string
	logLevel   string
}

// Execute runs the samplectl command tree.
func Execute() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// SetLogLevel adjusts the global zerolog level from a string.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func buildRootCmd() *cobra.Command {
	opts := &options{logLevel: "info"}
	root := &cobra.Command{
		Use:           "samplectl",
		Short:         "Inspect and exercise recorded sample caches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a sampled config file (yaml|json|toml)")
	root.PersistentFlags().StringVar(&opts.cacheRoot, "cache-root", "", "Cache root (overrides the config file)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level: debug|info|warn|error")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(opts.logLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	var (
		model       string
		n           int
		replication bool
	)
	sampleCmd := &cobra.Command{
		Use:     "sample <prompt>",
		Short:   "Pull completions for a prompt through the configured stack",
		Example: "  samplectl --config sampled.yaml sample -n 3 \"Write a haiku\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnSample(opts, model, args[0], n, replication)
		},
	}
	sampleCmd.Flags().StringVar(&model, "model", "", "Model id (defaults to the configured default)")
	sampleCmd.Flags().IntVarP(&n, "n", "n", 1, "Number of completions")
	sampleCmd.Flags().BoolVar(&replication, "replication", false, "Serve recorded samples only, never query upstream")
	root.AddCommand(sampleCmd)

	var long bool
	lsCmd := &cobra.Command{
		Use:     "ls",
		Short:   "List recorded partitions under the cache root",
		Example: "  samplectl --cache-root ~/.cache/sampled ls -l",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnList(opts, long)
		},
	}
	lsCmd.Flags().BoolVarP(&long, "long", "l", false, "Also list per-prompt fingerprints")
	root.AddCommand(lsCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every recorded sequence is contiguous from 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnVerify(opts)
		},
	}
	root.AddCommand(verifyCmd)

	return root
}
