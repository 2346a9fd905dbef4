package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/skyline93/fenda/internal/fecore"
	"github.com/skyline93/fenda/internal/memory"
)

var cmdHello = &cobra.Command{
	Use:   "hello",
	Short: "Print the startup banner",
	Long: `
The "hello" command prints the startup banner through the command registry
and the log stream, exercising the full shell path.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHello(helloOptions.LogFile)
	},
}

// HelloOptions bundles all options for the hello command.
type HelloOptions struct {
	LogFile string
}

var helloOptions HelloOptions

func init() {
	cmdRoot.AddCommand(cmdHello)

	f := cmdHello.Flags()
	f.StringVar(&helloOptions.LogFile, "log-file", "", "duplicate output into `file`")
}

func runHello(logFile string) error {
	stream := fecore.NewLogStream(os.Stdout)
	if logFile != "" {
		if err := stream.AttachFile(logFile); err != nil {
			return err
		}
		defer stream.Close()
	}

	var alloc memory.Allocator
	commands := fecore.NewCommandManager(alloc)
	defer commands.Free()

	err := commands.Register("hello", "print the startup banner", func([]string) error {
		sayHello(stream)
		return nil
	})
	if err != nil {
		return err
	}

	return commands.Dispatch("hello", nil)
}

func sayHello(stream *fecore.LogStream) {
	stream.Print("===========================================================\n")
	stream.Print("                    F E N D A\n")
	stream.Print("     F I N I T E   E L E M E N T S   A P P L I C A T I O N\n")
	stream.Printf("  version %s\n", version)
	stream.Print("===========================================================\n")
}
