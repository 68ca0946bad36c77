package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulokuns/rspamd/pkg/config"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate the configuration",
	Long: `Load the configuration, resolve every selector and map, and compile
every module expression. A module with any configuration error is reported
with its module and rule context; nothing is evaluated.`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	policy, err := config.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer policy.Close()

	for _, rs := range policy.Rulesets {
		fmt.Fprintf(os.Stdout, "module %s: expression %q, rules [%s]\n",
			rs.Module(), rs.Expression(), strings.Join(rs.RuleNames(), ", "))
	}
	fmt.Fprintf(os.Stdout, "%d module(s) OK\n", len(policy.Rulesets))
	return nil
}
