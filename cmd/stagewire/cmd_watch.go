package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagewire-net/stagewire/pkg/cli"
	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
)

var watchInterval time.Duration

// printHandler writes one line per interface event.
type printHandler struct {
	intf.NopHandler
}

func (printHandler) OnIntfCreate(id intf.ID) {
	fmt.Printf("%s  %s created\n", timestamp(), id)
}

func (printHandler) OnIntfDelete(id intf.ID) {
	fmt.Printf("%s  %s deleted\n", timestamp(), id)
}

func (printHandler) OnOperStatus(id intf.ID, status intf.OperStatus) {
	fmt.Printf("%s  %s oper %s\n", timestamp(), id, cli.StatusColor(status.String()))
}

func (printHandler) OnAdminEnabled(id intf.ID, enabled bool) {
	state := "down"
	if enabled {
		state = "up"
	}
	fmt.Printf("%s  %s admin %s\n", timestamp(), id, cli.StatusColor(state))
}

func timestamp() string {
	return cli.Dim(time.Now().Format("15:04:05"))
}

var watchCmd = &cobra.Command{
	Use:   "watch [interface...]",
	Short: "Follow interface changes made by other agents",
	Long: `Follow interface changes in the entry store.

Polls the store and reports creates, deletes, and admin/oper status
transitions made by any writer, until interrupted. With interface
arguments, only events for those interfaces are reported.

Examples:
  stagewire watch
  stagewire watch Ethernet0 Ethernet4
  stagewire watch --interval 5s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			ids := make([]intf.ID, len(args))
			for i, name := range args {
				id, err := intf.Parse(name)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			m, st, err := openIntfMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			var h printHandler
			if len(ids) == 0 {
				m.WatchAllIntfs(h, true)
			}
			for _, id := range ids {
				m.WatchIntf(h, id, true)
			}
			defer m.Detach(h)

			fmt.Fprintf(os.Stderr, "Watching %s every %s (Ctrl-C to stop)\n", storeAddr, watchInterval)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			ticker := time.NewTicker(watchInterval)
			defer ticker.Stop()

			for {
				select {
				case <-stop:
					return nil
				case <-ticker.C:
					if err := m.Refresh(); err != nil {
						return err
					}
				}
			}
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Poll interval")
}
