package app

import (
	"github.com/spf13/pflag"
)

// runOptions はrun/workerコマンドのフラグ。
type runOptions struct {
	accountsFile string
	only         []string
	dryRun       bool
	dryRunSet    bool
	envFiles     []string
}

func parseRunFlags(name string, args []string) (runOptions, error) {
	var opts runOptions

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&opts.accountsFile, "accounts-file", "", "YAML accounts file (overrides ACCOUNTS_FILE)")
	fs.StringSliceVar(&opts.only, "only", nil, "run only these account tags (comma-separated)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "select and log the plan without performing actions or saving the ledger")
	fs.StringSliceVar(&opts.envFiles, "env-file", nil, ".env files to load before reading the environment")

	if err := fs.Parse(args); err != nil {
		return runOptions{}, err
	}
	opts.dryRunSet = fs.Changed("dry-run")

	return opts, nil
}
