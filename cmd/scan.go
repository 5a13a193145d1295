package cmd

import (
	"fmt"

	"github.com/grata-labs/gitcache/pkg/lockfile"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/spf13/cobra"
)

var (
	scanLockfileFlag string
	scanJSONFlag     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the Git-sourced dependencies found in a lockfile",
	Long: `scan parses package-lock.json (v1 nested tree or v2+ flat packages
map), side-loads the sibling package.json to repair npm's HTTPS->SSH
lockfile rewrite, and prints every Git-sourced dependency it finds.

It does not resolve refs to commits or build tarballs; use 'prepare' for
that.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := scanLockfileFlag
		if path == "" {
			path = "package-lock.json"
		}

		root, err := cacheRoot()
		if err != nil {
			return err
		}
		logger := newLogger(root)

		result, err := lockfile.Scan(path, logger)
		if err != nil {
			return err
		}

		format := output.Table
		if scanJSONFlag {
			format = output.JSON
		}

		if format == output.JSON {
			return output.FormatOutput(result, output.JSON)
		}

		fmt.Printf("schema version: %d\n", result.SchemaVersion)
		if !result.HasGit {
			fmt.Println("no Git-sourced dependencies found")
			return nil
		}

		table := output.NewTable("Name", "Reference", "Preferred URL")
		for _, dep := range result.Dependencies {
			table.AddRow(dep.Name, dep.Reference, dep.PreferredURL)
		}
		return table.Format(output.Table)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanLockfileFlag, "lockfile", "", "path to the lockfile (default: package-lock.json)")
	scanCmd.Flags().BoolVar(&scanJSONFlag, "json", false, "emit JSON instead of a table")
}
