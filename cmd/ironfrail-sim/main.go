// Command ironfrail-sim drives the host simulator through the named
// end-to-end scenarios in board's cooperative scheduler, the same role
// main_host.go's "-headless" mode plays for the teacher's own app: a
// terminal-only entrypoint that boots a kernel instance and narrates
// what happens on it.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&runCmd{}, "scenario")
	subcommands.Register(&listCmd{}, "scenario")
	subcommands.Register(&versionCmd{}, "")

	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx, log)))
}
