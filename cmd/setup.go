package cmd

import (
	"fmt"

	"github.com/grata-labs/gitcache/pkg/auth"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	setupOrgFlag      string
	setupCIFlag       bool
	setupTokenFlag    string
	setupListOrgsFlag bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Bind a token to an organization and persist it as the active credential",
	Long: `setup binds a token to an organization and writes the result to
auth.json. The token's kind follows its prefix: a ci_-prefixed token is a
CI credential (never expires), any other token is a user token with the
standard 30-day expiry window. --ci requires a ci_-prefixed token and
validates it against the registry, taking the organization from the
registry when --org is not given; without --ci the token is not validated.
--list-orgs prints the caller's organizations instead of persisting
anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}

		token := setupTokenFlag
		if token == "" {
			token = viper.GetString("GITCACHE_TOKEN")
		}
		if token == "" {
			return fmt.Errorf("no token provided: pass --token or set GITCACHE_TOKEN")
		}

		regClient := newRegistryClient(root, auth.Issue(token))
		ctx, cancel := interruptContext()
		defer cancel()

		if setupListOrgsFlag {
			orgs, err := regClient.Organizations(ctx)
			if err != nil {
				return err
			}
			table := output.NewTable("ID", "Name", "Default")
			for _, o := range orgs {
				def := ""
				if o.IsDefault {
					def = "yes"
				}
				table.AddRow(o.ID, o.Name, def)
			}
			return table.Format(output.Table)
		}

		record := auth.Issue(token)
		record.OrgID = setupOrgFlag

		if setupCIFlag {
			if auth.Classify(token) != auth.KindCI {
				return fmt.Errorf("--ci requires a ci_-prefixed token")
			}
			result, err := regClient.ValidateToken(ctx, token)
			if err != nil {
				return err
			}
			if record.OrgID == "" {
				record.OrgID = result.Organization
			}
		}

		if err := auth.Save(gcpath.AuthPath(root), record); err != nil {
			return err
		}

		kv := output.NewKeyValue("setup")
		kv.Add("orgId", record.OrgID)
		kv.Add("kind", string(record.Kind))
		fmt.Println()
		return kv.Format(output.Table)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVar(&setupOrgFlag, "org", "", "organization ID to bind the token to")
	setupCmd.Flags().BoolVar(&setupCIFlag, "ci", false, "mark the token as a CI credential")
	setupCmd.Flags().StringVar(&setupTokenFlag, "token", "", "token to validate and persist (default: GITCACHE_TOKEN)")
	setupCmd.Flags().BoolVar(&setupListOrgsFlag, "list-orgs", false, "list organizations instead of persisting a token")
}
