package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// runCmd implements subcommands.Command for "scenario run".
type runCmd struct {
	configPath string
	verbose    bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run a named scenario to completion" }
func (*runCmd) Usage() string {
	return `run [-config path.toml] [-v] <scenario>:
	Boots a kernel instance and runs one of the named scenarios
	(see "ironfrail-sim scenario list") until the run's tick budget is
	exhausted or five seconds of wall-clock time have passed.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "optional TOML file overriding tick_rate_hz / max_ticks")
	f.BoolVar(&c.verbose, "v", false, "enable debug-level narration")
}

func (c *runCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	log, _ := args[0].(*logrus.Logger)
	if log == nil {
		log = logrus.New()
	}
	if c.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)

	s, ok := findScenario(name)
	if !ok {
		log.WithField("scenario", name).Error("unknown scenario")
		return subcommands.ExitUsageError
	}

	scfg := defaultScenarioConfig()
	if c.configPath != "" {
		if _, err := toml.DecodeFile(c.configPath, &scfg); err != nil {
			log.WithError(err).Error("failed to load scenario config")
			return subcommands.ExitFailure
		}
	}

	if err := s.run(log, scfg); err != nil {
		log.WithError(err).WithField("scenario", name).Error("scenario failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// listCmd implements subcommands.Command for "scenario list".
type listCmd struct{}

func (*listCmd) Name() string             { return "list" }
func (*listCmd) Synopsis() string         { return "list the named scenarios this binary can run" }
func (*listCmd) Usage() string            { return "list:\n\tPrints every scenario name and its synopsis.\n" }
func (*listCmd) SetFlags(f *flag.FlagSet) {}

func (*listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	for _, s := range scenarios {
		fmt.Printf("%-12s %s\n", s.name, s.synopsis)
	}
	return subcommands.ExitSuccess
}
