// Package cli implements the histrail command-line interface.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status  *StatusCommand
	Add     *AddCommand
	Import  *ImportCommand
	Index   *IndexCommand
	Suggest *SuggestCommand
	Like    *LikeCommand
	Unlike  *UnlikeCommand
	Block   *BlockCommand
	Unblock *UnblockCommand
	Serve   *ServeCommand
	Purge   *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "histrail"
	parser.LongDescription = "Local browsing-history indexing and related-page suggestions."

	cmds := &commands{
		Status:  &StatusCommand{globals: &globals, version: version},
		Add:     &AddCommand{globals: &globals, version: version},
		Import:  &ImportCommand{globals: &globals, version: version},
		Index:   &IndexCommand{globals: &globals, version: version},
		Suggest: &SuggestCommand{globals: &globals, version: version},
		Like:    &LikeCommand{globals: &globals, version: version},
		Unlike:  &UnlikeCommand{globals: &globals, version: version},
		Block:   &BlockCommand{globals: &globals, version: version},
		Unblock: &UnblockCommand{globals: &globals, version: version},
		Serve:   &ServeCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show index health and statistics", "Show index health, database statistics, and daemon state.", cmds.Status)
	parser.AddCommand("add", "Record a single visit", "Record a single visit into the history log.", cmds.Add)
	parser.AddCommand("import", "Bulk-load visits from a JSON export", "Bulk-load visits from a JSON history export file.", cmds.Import)
	parser.AddCommand("index", "Build or update the co-occurrence index", "Run one index build; incremental by default, full with --full.", cmds.Index)
	parser.AddCommand("suggest", "Print related pages for a URL", "Print ranked related-page suggestions for a URL.", cmds.Suggest)
	parser.AddCommand("like", "Mark a URL as liked", "Mark a URL as liked so it ranks higher in suggestions.", cmds.Like)
	parser.AddCommand("unlike", "Remove a URL from the liked list", "Remove a URL from the liked list.", cmds.Unlike)
	parser.AddCommand("block", "Block a URL or domain", "Hide a URL or a whole domain from suggestions.", cmds.Block)
	parser.AddCommand("unblock", "Unblock a URL or domain", "Remove a URL or domain from the blocked lists.", cmds.Unblock)
	parser.AddCommand("serve", "Start the histrail daemon", "Start the histrail daemon (local HTTP service).", cmds.Serve)
	parser.AddCommand("purge", "Delete ALL histrail data", "Delete ALL histrail data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the histrail CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("histrail %s\n", version)
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
