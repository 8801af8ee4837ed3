package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/baraverkstad/rcstorage"
)

var putCmd = &cobra.Command{
	Use:   "put <path> <file>",
	Short: "store the contents of <file> at <path>",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, root, err := bootstrap()
		if err != nil {
			fatalf("%v", err)
		}
		defer root.UnmountAll(ctx)

		p := mustPath(args[0])
		f, err := os.Open(args[1])
		if err != nil {
			fatalf("put %s: %v", p, err)
		}
		defer f.Close()

		if _, ok := rcstorage.SerializerFor(extOf(args[1])); ok {
			d, err := rcstorage.Deserialize(args[1], f)
			if err != nil {
				fatalf("put %s: %v", p, err)
			}
			if err := root.Store(ctx, p, d); err != nil {
				fatalf("put %s: %v", p, err)
			}
			return
		}

		info, err := f.Stat()
		if err != nil {
			fatalf("put %s: %v", p, err)
		}
		handle := &rcstorage.BinaryHandle{Stream: f, Size: info.Size(), Modified: info.ModTime()}
		if err := root.Store(ctx, p, handle); err != nil {
			fatalf("put %s: %v", p, err)
		}
	},
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:]
		}
		if name[i] == '/' {
			break
		}
	}
	return ""
}
