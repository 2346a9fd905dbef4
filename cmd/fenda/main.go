package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skyline93/fenda/internal/memory"
)

var version = "0.1.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "fenda",
	Short: "Finite elements application scaffold",
	Long: `
fenda is the application shell of a finite elements code. It carries the
allocation-tracked container foundation the solver modules build on; run it
with --guarded to enable leak and corruption checking.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupMemory()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

// GlobalOptions bundles the options shared by every command.
type GlobalOptions struct {
	Guarded    bool
	FailOnLeak bool
	MemLimit   int64
	Verbose    bool
}

var globalOptions GlobalOptions

func init() {
	f := cmdRoot.PersistentFlags()
	f.BoolVar(&globalOptions.Guarded, "guarded", false, "track every allocation and check canaries (slower)")
	f.BoolVar(&globalOptions.FailOnLeak, "fail-on-leak", false, "abort when blocks are still allocated on exit")
	f.Int64Var(&globalOptions.MemLimit, "mem-limit", 0, "allocation budget in bytes, 0 means unlimited")
	f.BoolVarP(&globalOptions.Verbose, "verbose", "v", false, "enable debug logging")
}

// setupMemory selects the allocator backend. It runs before any command
// allocates; switching later would fail with ErrInvalidState.
func setupMemory() error {
	if globalOptions.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if globalOptions.Guarded {
		if err := memory.UseGuarded(); err != nil {
			return err
		}
		log.Debug("guarded allocator backend selected")
	}
	if globalOptions.MemLimit > 0 {
		memory.Current().SetLimit(globalOptions.MemLimit)
	}
	return nil
}

func main() {
	err := cmdRoot.Execute()

	// Runs after every command released its containers; anything still
	// allocated at this point is a leak.
	memory.InitLeakDetection(globalOptions.FailOnLeak)()

	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
