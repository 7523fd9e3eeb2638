// Command procsim is the CLI driver: it loads a program, wires a
// timing.Core, runs it to completion (or until -cycles is exhausted),
// and prints the final architectural state plus core.Stats(). It is
// explicitly thin ambient plumbing around the backend package, the
// same role cmd/m2sim/main.go plays for the teacher's pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/samgd/procsim/internal/config"
	"github.com/samgd/procsim/internal/logging"
	"github.com/samgd/procsim/internal/program"
	"github.com/samgd/procsim/timing"
)

var (
	robCapacity = flag.Int("rob", 0, "Reorder Buffer capacity (0 = use -config or default)")
	rsCapacity  = flag.Int("rs", 0, "Reservation Station capacity (0 = use -config or default)")
	lsqCapacity = flag.Int("lsq", 0, "Load/Store Queue capacity (0 = use -config or default)")
	width       = flag.Int("width", 0, "Reorder Buffer retire width (0 = use -config or default)")
	cycles      = flag.Int("cycles", 100000, "maximum cycles to run before giving up")
	configPath  = flag.String("config", "", "path to a backend config JSON file")
	verbose     = flag.Bool("v", false, "verbose per-cycle retire/flush logging")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: procsim [options] <program.asm>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	programPath := flag.Arg(0)

	if err := run(programPath); err != nil {
		fmt.Fprintf(os.Stderr, "procsim: %v\n", err)
		os.Exit(1)
	}
}

func run(programPath string) error {
	var cfg *config.BackendConfig
	var prog *program.Program

	// The config file and the program file are independent local reads;
	// loading them concurrently shaves a little wall-clock off startup
	// without complicating either load path.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		if *configPath != "" {
			cfg, err = config.Load(*configPath)
		} else {
			cfg = config.Default()
		}
		return err
	})
	g.Go(func() error {
		var err error
		prog, err = program.Load(programPath)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	instructions, err := prog.Decode()
	if err != nil {
		return err
	}

	log := logging.Discard()
	if *verbose {
		log = logging.New("procsim", true)
	}

	core, err := timing.NewCore(cfg, nil, log)
	if err != nil {
		return err
	}

	fed := 0
	ran := 0
	for fed < len(instructions) && ran < *cycles {
		for fed < len(instructions) {
			if err := core.FeedInstruction(instructions[fed]); err != nil {
				break
			}
			fed++
		}
		core.Tick()
		ran++
	}
	ran += core.Run(*cycles - ran)

	stats := core.Stats()
	printSummary(programPath, core, stats)
	return nil
}

// applyFlagOverrides replaces any cfg field whose flag was set to a
// positive value, leaving the config-file or Default() value otherwise.
func applyFlagOverrides(cfg *config.BackendConfig) {
	if *robCapacity > 0 {
		cfg.ROBCapacity = *robCapacity
	}
	if *rsCapacity > 0 {
		cfg.RSCapacity = *rsCapacity
	}
	if *lsqCapacity > 0 {
		cfg.LSQCapacity = *lsqCapacity
	}
	if *width > 0 {
		cfg.ROBWidth = *width
	}
}

func printSummary(programPath string, core *timing.Core, stats timing.Stats) {
	heading := color.New(color.FgCyan, color.Bold)
	heading.Printf("\nprogram: %s\n", programPath)
	fmt.Printf("cycles:  %d\n", stats.Cycles)
	fmt.Printf("retired: %d\n", stats.Retired)

	flushLine := fmt.Sprintf("flushes: %d", stats.Flushes)
	if stats.Flushes > 0 {
		color.New(color.FgYellow).Println(flushLine)
	} else {
		fmt.Println(flushLine)
	}

	fmt.Printf("\nregisters: %s\n", core.RegisterFile())
	fmt.Printf("memory:    %v\n", core.Memory().Snapshot())
}
