package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagewire-net/stagewire/pkg/stagewire/declare"
	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/iproute"
)

var applyCmd = &cobra.Command{
	Use:   "apply <file.yaml>",
	Short: "Converge a tag partition onto a declaration file",
	Long: `Apply a YAML declaration file.

The file names a tag and the interfaces and routes that tag should hold.
Apply sets the interface attributes, then replaces the tag's partition
of the route tables with exactly the declared routes in one batch.
Routes carrying other tags are never touched.

Example file:

  tag: 7
  interfaces:
    - name: Ethernet0
      admin: up
  routes:
    - prefix: 10.0.0.0/24
      vias:
        - nexthop: 10.0.0.1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			f, err := declare.Load(args[0])
			if err != nil {
				return err
			}
			plan, err := declare.Compile(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			im, err := intf.NewMgr(st)
			if err != nil {
				return err
			}
			if err := plan.Apply(im, iproute.NewMgr(st)); err != nil {
				return err
			}

			routes, vias := plan.Routes()
			fmt.Printf("Applied %s: tag %d now holds %d routes, %d vias\n", args[0], f.Tag, routes, vias)
			return nil
		})
	},
}
