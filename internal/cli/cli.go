package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Daemon  *DaemonCommand
	Summary *SummaryCommand
	Status  *StatusCommand
	Clear   *ClearCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "sitetime"
	parser.LongDescription = "Local tracker of how long the browser keeps each web address active."

	cmds := &commands{
		Daemon:  &DaemonCommand{globals: &globals, version: version},
		Summary: &SummaryCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Clear:   &ClearCommand{globals: &globals, version: version},
	}

	parser.AddCommand("daemon", "Start the sitetime daemon", "Start the tracker and the local HTTP endpoint the browser extension reports to.", cmds.Daemon)
	parser.AddCommand("summary", "Show time per address", "Show accumulated time per address, longest first.", cmds.Summary)
	parser.AddCommand("status", "Show daemon and database status", "Show daemon health, the address being tracked, and database statistics.", cmds.Status)
	parser.AddCommand("clear", "Reset all durations", "Reset every accumulated duration. Destructive operation with safety prompt.", cmds.Clear)

	return parser, &globals, cmds
}

// Run is the main entry point for the sitetime CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand, which go-flags would reject.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("sitetime %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
