package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baraverkstad/rcstorage"
)

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "list the indices and objects directly under <path>",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, root, err := bootstrap()
		if err != nil {
			fatalf("%v", err)
		}
		defer root.UnmountAll(ctx)

		p := mustPath(args[0])
		v, ok, err := root.Load(ctx, p)
		if err != nil {
			fatalf("ls %s: %v", p, err)
		}
		if !ok {
			fatalf("ls %s: not found", p)
		}
		idx, isIdx := v.(rcstorage.Index)
		if !isIdx {
			fatalf("ls %s: not an index", p)
		}
		for _, name := range idx.Indices {
			fmt.Println(name + "/")
		}
		for _, name := range idx.Objects {
			fmt.Println(name)
		}
	},
}
