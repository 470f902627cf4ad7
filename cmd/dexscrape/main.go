// Command dexscrape crawls pokemondb.net and writes one record per entity.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ramkansal/dexscrape/internal/config"
)

var version = "1.0.0"

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	noColor    bool
	silent     bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		newUI(stderr, opts).errorf(err)
		return 1
	}
	return 0
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "dexscrape",
		Short:         "Crawl the Pokédex into structured records",
		Long:          "dexscrape walks the type index of pokemondb.net, visits every entity page and extracts its number, base stats and level-up moves.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default is ./dexscrape.yaml or ./config/dexscrape.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&opts.silent, "silent", "s", false, "suppress progress output")

	root.AddCommand(
		newCrawlCmd(opts),
		newExtractCmd(opts),
		newDiscoverCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "dexscrape v%s\n", version)
			},
		},
	)
	return root
}

// loadConfig reads the configuration and applies the shared flags.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}
