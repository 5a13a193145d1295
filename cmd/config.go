package cmd

import (
	"fmt"
	"strings"

	"github.com/grata-labs/gitcache/pkg/gcconfig"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/spf13/cobra"
)

var (
	configListFlag bool
	configGetFlag  string
	configSetFlag  string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit the persisted cache-size configuration",
	Long: `config reads and writes config.json, the only piece of on-disk
configuration this tool owns directly (spec §6): { "maxCacheSize": "<N><Unit>" }.

Everything else (API URL, token, verbosity) is environment-driven; see
'gitcache --help' for GITCACHE_API_URL, GITCACHE_TOKEN, GITCACHE_VERBOSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		path := gcpath.ConfigPath(root)

		cfg, err := gcconfig.Load(path)
		if err != nil {
			return err
		}

		switch {
		case configSetFlag != "":
			key, value, ok := strings.Cut(configSetFlag, "=")
			if !ok {
				return fmt.Errorf("invalid --set %q: expected key=value", configSetFlag)
			}
			if key != "maxCacheSize" {
				return fmt.Errorf("unknown config key %q", key)
			}
			cfg.MaxCacheSize = value
			if err := gcconfig.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("maxCacheSize = %s\n", cfg.MaxCacheSize)
			return nil

		case configGetFlag != "":
			if configGetFlag != "maxCacheSize" {
				return fmt.Errorf("unknown config key %q", configGetFlag)
			}
			fmt.Println(cfg.MaxCacheSize)
			return nil

		default: // --list or bare invocation
			kv := output.NewKeyValue("config")
			kv.Add("maxCacheSize", cfg.MaxCacheSize)
			return kv.Format(output.Table)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configListFlag, "list", false, "list all configuration keys")
	configCmd.Flags().StringVar(&configGetFlag, "get", "", "print the value of a single key")
	configCmd.Flags().StringVar(&configSetFlag, "set", "", "set key=value and persist it")
}
