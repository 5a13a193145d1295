package cmd

import (
	"fmt"
	"os"

	"github.com/grata-labs/gitcache/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	versionFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitcache",
	Short: "A content-addressed cache and acceleration layer for Git-sourced npm dependencies",
	Long: `gitcache converts repeated, slow Git-clone-and-build steps for Git-sourced
npm dependencies into deterministic, content-addressed tarball artifacts,
reused across a developer's machine, their team (via a cloud registry),
and CI.

It stages artifacts and delegates installation to npm; it never installs
packages or modifies lockfiles itself.`,
	Run: func(cmd *cobra.Command, args []string) {
		if versionFlag {
			fmt.Println(version.GetVersion())
			os.Exit(0)
		}
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). Exit codes follow spec §6:
// 0 success, 1 usage/runtime error, 130 user cancellation.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if isCancellation(err) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file; accepted but not read: commands always use $HOME/.gitcache/config.json")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "v", false, "Show version information")
}

// initConfig binds the documented environment variables via viper,
// mirroring the teacher's cobra.OnInitialize(initConfig) pattern.
func initConfig() {
	viper.SetEnvPrefix("")
	viper.SetDefault("GITCACHE_API_URL", "https://api.gitcache.dev")
	viper.SetDefault("GITCACHE_TOKEN", "")
	viper.SetDefault("GITCACHE_VERBOSE", false)
	viper.BindEnv("GITCACHE_API_URL")
	viper.BindEnv("GITCACHE_TOKEN")
	viper.BindEnv("GITCACHE_VERBOSE")
	viper.AutomaticEnv()
}
