package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stagewire-net/stagewire/pkg/cli"
	"github.com/stagewire-net/stagewire/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.stagewire/settings.json.

Settings provide defaults for global flags:
  - store_addr:  Used when --store is not specified
  - store_db:    Used when --db is not specified
  - default_tag: Used when --tag is not specified
  - ssh_user:    Used when --ssh-user is not specified

Examples:
  stagewire settings show
  stagewire settings set store 10.1.1.50:6379
  stagewire settings set tag 7
  stagewire settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")
		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}
		printSetting("store_addr", s.StoreAddr)
		printSetting("store_db", nonZero(s.StoreDB))
		printSetting("default_tag", nonZero(int(s.DefaultTag)))
		printSetting("ssh_user", s.SSHUser)
		t.Flush()
		return nil
	},
}

func nonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value.

Available settings:
  store - Entry store address (--store flag default)
  db    - Entry store database number (--db flag default)
  tag   - Route tag scope (--tag flag default)
  user  - SSH tunnel user (--ssh-user flag default)

Examples:
  stagewire settings set store 10.1.1.50:6379
  stagewire settings set tag 7`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch args[0] {
		case "store":
			s.StoreAddr = args[1]
		case "db":
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid database number %q: %w", args[1], err)
			}
			s.StoreDB = n
		case "tag":
			n, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid tag %q: %w", args[1], err)
			}
			s.DefaultTag = uint32(n)
		case "user":
			s.SSHUser = args[1]
		default:
			return fmt.Errorf("unknown setting %q (store, db, tag, user)", args[0])
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings.DefaultSettingsPath()
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No settings file to remove")
				return nil
			}
			return err
		}
		fmt.Printf("Removed %s\n", path)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsClearCmd)
}
