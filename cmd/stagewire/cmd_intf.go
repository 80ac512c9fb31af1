package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagewire-net/stagewire/pkg/cli"
	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
)

var intfCmd = &cobra.Command{
	Use:   "intf",
	Short: "Inspect and set interface attributes",
	Long: `Inspect and set attributes of interfaces in the entry store.

Interfaces are created and deleted by the platform agent; stagewire only
reads them and sets admin state and description.

Examples:
  stagewire intf list
  stagewire intf show Ethernet0
  stagewire intf set Ethernet0 admin up
  stagewire intf set Ethernet0 description "uplink to spine1"`,
}

type intfRecord struct {
	Name        string `json:"name"`
	Admin       string `json:"admin"`
	Oper        string `json:"oper"`
	Description string `json:"description,omitempty"`
}

func intfRecordOf(m *intf.Mgr, id intf.ID) (intfRecord, error) {
	admin, err := m.AdminEnabled(id)
	if err != nil {
		return intfRecord{}, err
	}
	oper, err := m.OperStatus(id)
	if err != nil {
		return intfRecord{}, err
	}
	descr, err := m.Description(id)
	if err != nil {
		return intfRecord{}, err
	}
	rec := intfRecord{Name: id.String(), Oper: oper.String(), Description: descr}
	rec.Admin = "down"
	if admin {
		rec.Admin = "up"
	}
	return rec, nil
}

var intfListCmd = &cobra.Command{
	Use:   "list",
	Short: "List interfaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			m, st, err := openIntfMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			var records []intfRecord
			it := m.Iter()
			for it.Next() {
				rec, err := intfRecordOf(m, it.ID())
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			if err := it.Err(); err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(records)
			}
			if len(records) == 0 {
				fmt.Println("No interfaces found")
				return nil
			}

			t := cli.NewTable("INTERFACE", "ADMIN", "OPER", "DESCRIPTION")
			for _, rec := range records {
				t.Row(rec.Name, cli.StatusColor(rec.Admin), cli.StatusColor(rec.Oper), dash(rec.Description))
			}
			t.Flush()
			return nil
		})
	},
}

var intfShowCmd = &cobra.Command{
	Use:   "show <interface>",
	Short: "Show one interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			id, err := intf.Parse(args[0])
			if err != nil {
				return err
			}

			m, st, err := openIntfMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			ok, err := m.Exists(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("interface %s not found", id)
			}

			rec, err := intfRecordOf(m, id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(rec)
			}

			fmt.Printf("Interface:   %s\n", rec.Name)
			fmt.Printf("Type:        %s\n", id.Type())
			fmt.Printf("Admin:       %s\n", cli.StatusColor(rec.Admin))
			fmt.Printf("Oper:        %s\n", cli.StatusColor(rec.Oper))
			fmt.Printf("Description: %s\n", dash(rec.Description))
			return nil
		})
	},
}

var intfSetCmd = &cobra.Command{
	Use:   "set <interface> <attribute> <value>",
	Short: "Set an interface attribute",
	Long: `Set an interface attribute.

Attributes:
  admin        - "up" or "down"
  description  - free-form text

Examples:
  stagewire intf set Ethernet0 admin up
  stagewire intf set Ethernet0 description "uplink to spine1"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			id, err := intf.Parse(args[0])
			if err != nil {
				return err
			}

			m, st, err := openIntfMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			ok, err := m.Exists(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("interface %s not found", id)
			}

			switch args[1] {
			case "admin":
				switch args[2] {
				case "up":
					return m.SetAdminEnabled(id, true)
				case "down":
					return m.SetAdminEnabled(id, false)
				}
				return fmt.Errorf("admin must be \"up\" or \"down\", got %q", args[2])
			case "description":
				return m.SetDescription(id, args[2])
			}
			return fmt.Errorf("unknown attribute %q (admin, description)", args[1])
		})
	},
}

func init() {
	intfCmd.AddCommand(intfListCmd, intfShowCmd, intfSetCmd)
}
