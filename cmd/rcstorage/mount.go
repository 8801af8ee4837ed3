package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "mount the configured backends and print the root index metadata",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, root, err := bootstrap()
		if err != nil {
			fatalf("%v", err)
		}
		defer root.UnmountAll(ctx)

		meta, ok, err := root.Lookup(ctx, rootPath())
		if err != nil {
			fatalf("lookup /: %v", err)
		}
		if !ok {
			fatalf("root index missing after mount")
		}
		printJSON(newMetadataView(meta))
		for name := range mustConfig().Mounts {
			fmt.Println("mounted:", name)
		}
	},
}
