package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/grata-labs/gitcache/pkg/auth"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage registry authentication",
}

var authLoginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Store a user token read from a masked prompt (no registry round-trip)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		fmt.Print("Password: ")
		token, err := readSecret()
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		root, err := cacheRoot()
		if err != nil {
			return err
		}

		record := auth.Issue(strings.TrimSpace(token))
		record.Email = email

		if err := auth.Save(gcpath.AuthPath(root), record); err != nil {
			return err
		}
		fmt.Println("Authenticated as", email)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the persisted credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		if err := auth.Logout(gcpath.AuthPath(root)); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current authentication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		record, err := loadAuth(root)
		if err != nil {
			return err
		}

		kv := output.NewKeyValue("auth status")
		kv.Add("authenticated", fmt.Sprintf("%v", record.IsAuthenticated()))
		if record.IsAuthenticated() {
			kv.Add("kind", string(record.Kind))
			if record.Email != "" {
				kv.Add("email", record.Email)
			}
			kv.Add("orgId", record.OrgID)
		}
		return kv.Format(output.Table)
	},
}

var authOrgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List organizations for the current token",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		record, err := loadAuth(root)
		if err != nil {
			return err
		}
		if !record.IsAuthenticated() {
			return fmt.Errorf("not authenticated; run 'gitcache auth login' or 'gitcache setup' first")
		}

		regClient := newRegistryClient(root, record)
		ctx, cancel := interruptContext()
		defer cancel()

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
	},
}

var authSetupCICmd = &cobra.Command{
	Use:   "setup-ci",
	Short: "Validate a ci_-prefixed token and print its bound organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		record, err := loadAuth(root)
		if err != nil {
			return err
		}
		if auth.Classify(record.Token) != auth.KindCI {
			return fmt.Errorf("GITCACHE_TOKEN must be a ci_-prefixed token for setup-ci")
		}

		regClient := newRegistryClient(root, record)
		ctx, cancel := interruptContext()
		defer cancel()

		result, err := regClient.ValidateToken(ctx, record.Token)
		if err != nil {
			return err
		}
		record.OrgID = result.Organization
		if err := auth.Save(gcpath.AuthPath(root), record); err != nil {
			return err
		}
		fmt.Println("CI token bound to organization", result.Organization)
		return nil
	},
}

// readSecret reads a password from stdin without echoing it to the
// terminal when stdin is a TTY, falling back to a plain line read (e.g.
// piped input in CI) otherwise.
func readSecret() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return line, nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd, authOrgsCmd, authSetupCICmd)
}
