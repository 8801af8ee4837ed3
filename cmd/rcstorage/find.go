package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baraverkstad/rcstorage/query"
)

var (
	findExt     string
	findHidden  bool
	findMaxDept int
)

var findCmd = &cobra.Command{
	Use:   "find <path>",
	Short: "walk <path> depth-first and print every matching object path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, root, err := bootstrap()
		if err != nil {
			fatalf("%v", err)
		}
		defer root.UnmountAll(ctx)

		base := mustPath(args[0])
		q := query.New(root, base).WithHidden(findHidden)
		if findExt != "" {
			q = q.WithExtension(findExt)
		}
		if findMaxDept > 0 {
			q = q.MaxDepth(findMaxDept)
		}

		paths, err := q.Paths(ctx)
		if err != nil {
			fatalf("find %s: %v", base, err)
		}
		for _, p := range paths {
			fmt.Println(p.String())
		}
	},
}

func init() {
	findCmd.Flags().StringVar(&findExt, "ext", "", "only include objects with this extension")
	findCmd.Flags().BoolVar(&findHidden, "hidden", false, "include hidden indices/objects")
	findCmd.Flags().IntVar(&findMaxDept, "max-depth", 0, "limit traversal depth (0 means unlimited)")
}
