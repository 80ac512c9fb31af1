// Stagewire - shared route store management tool
//
// A CLI for inspecting and converging the interface and static route
// tables of a shared entry store (Redis) that other agents also write:
//
//	stagewire intf list                     # interface table
//	stagewire route list                    # route table, all tags
//	stagewire route set 10.0.0.0/24 --nexthop 10.0.0.1 --tag 7
//	stagewire apply routes.yaml             # replace one tag partition
//	stagewire watch                         # follow external changes
//
// Route writes are scoped by --tag (0 = unscoped); apply replaces the
// file's tag partition atomically and leaves every other tag alone.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagewire-net/stagewire/pkg/settings"
	"github.com/stagewire-net/stagewire/pkg/util"
	"github.com/stagewire-net/stagewire/pkg/version"
)

var (
	// Global option flags
	storeAddr  string
	storeDB    int
	tagFlag    uint32
	sshUser    string
	sshPass    string
	verbose    bool
	jsonOutput bool

	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "stagewire",
	Short:             "Shared route store management tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Stagewire manages the interface and static route tables of a shared
entry store. Route operations are scoped by --tag; apply converges one
tag partition onto a YAML declaration without touching the others.

  stagewire route list
  stagewire route set 10.0.0.0/24 --nexthop 10.0.0.1 --tag 7
  stagewire apply routes.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Flags override settings, settings override defaults.
		if storeAddr == "" {
			storeAddr = userSettings.GetStoreAddr()
		}
		if storeDB == 0 {
			storeDB = userSettings.StoreDB
		}
		if !cmd.Flags().Changed("tag") {
			tagFlag = userSettings.DefaultTag
		}
		if sshUser == "" {
			sshUser = userSettings.SSHUser
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeAddr, "store", "", "Entry store address (host:port)")
	rootCmd.PersistentFlags().IntVar(&storeDB, "db", 0, "Entry store database number")
	rootCmd.PersistentFlags().Uint32VarP(&tagFlag, "tag", "t", 0, "Route tag scope (0 = unscoped)")
	rootCmd.PersistentFlags().StringVar(&sshUser, "ssh-user", "", "Tunnel store access over SSH as this user")
	rootCmd.PersistentFlags().StringVar(&sshPass, "ssh-pass", "", "SSH password (prompted when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")

	rootCmd.AddCommand(
		intfCmd,
		routeCmd,
		applyCmd,
		watchCmd,
		settingsCmd,
		versionCmd,
	)
}
