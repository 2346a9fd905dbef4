package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/skyline93/fenda/internal/fecore"
	"github.com/skyline93/fenda/internal/memory"
)

var cmdMemstats = &cobra.Command{
	Use:   "memstats",
	Short: "Print allocator statistics",
	Long: `
The "memstats" command prints the usage counters of the active allocator
backend. With --guarded every live block is listed by allocation site.
`,
	DisableAutoGenTag: true,
	Run: func(cmd *cobra.Command, args []string) {
		runMemstats()
	},
}

func init() {
	cmdRoot.AddCommand(cmdMemstats)
}

func runMemstats() {
	stream := fecore.NewLogStream(os.Stdout)

	stream.Printf("backend: %s\n", memory.Current().Name())
	stream.Printf("in use:  %d bytes\n", memory.InUse())
	stream.Printf("peak:    %d bytes\n", memory.Peak())
	stream.Printf("blocks:  %d\n", memory.BlocksInUse())

	memory.Current().EnumerateBlocks(func(info memory.BlockInfo) {
		stream.Printf("  %s %s len: %d - %#x\n", info.Kind, info.Site, info.Len, info.Addr)
	})
}
