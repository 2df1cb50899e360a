package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"ironfrail/internal/buildinfo"
)

// versionCmd implements subcommands.Command for "version", grounded on the
// teacher's shell "sys" command (sparkos/services/shell/cmd_sys.go) printing
// buildinfo.Version/Commit/Date.
type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print build version information" }
func (*versionCmd) Usage() string            { return "version:\n\tPrints version, commit, and build date.\n" }
func (*versionCmd) SetFlags(f *flag.FlagSet) {}

func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Printf("%s %s %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	return subcommands.ExitSuccess
}
