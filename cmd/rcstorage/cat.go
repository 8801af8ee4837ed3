package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/baraverkstad/rcstorage"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "print the object or binary content stored at <path>",
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
			fatalf("cat %s: %v", p, err)
		}
		if !ok {
			fatalf("cat %s: not found", p)
		}

		switch t := v.(type) {
		case *rcstorage.BinaryHandle:
			defer t.Stream.Close()
			if _, err := io.Copy(os.Stdout, t.Stream); err != nil {
				fatalf("cat %s: %v", p, err)
			}
		case rcstorage.StorableObject:
			printJSON(t.Serialize())
		case rcstorage.Dictionary:
			printJSON(t)
		default:
			printJSON(t)
		}
	},
}
