// Command bluebook boots a Smalltalk-80 image: load config, optionally
// load a snapshot, wire a host environment, and run the interpreter until
// it halts. This is deliberately thin — the interpreter, the scheduler,
// and every primitive live in the vm package; this file only does the
// wiring a real deployment's main() would.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/clarking/Smalltalk80/hostsim"
	"github.com/clarking/Smalltalk80/vm"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	imagePath := flag.String("image", "", "path to a snapshot file to load at startup")
	flag.Parse()

	if err := run(*configPath, *imagePath); err != nil {
		fmt.Fprintln(os.Stderr, "bluebook:", err)
		os.Exit(1)
	}
}

func run(configPath, imagePath string) error {
	cfg, err := vm.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if imagePath != "" {
		cfg.ImagePath = imagePath
	}

	hal := &vm.HAL{
		Clock: hostsim.NewSystemClock(),
		Files: &hostsim.OSFileSystem{},
	}

	interp, err := vm.NewVM(cfg, hal)
	if err != nil {
		return err
	}

	if cfg.ImagePath != "" {
		f, err := os.Open(cfg.ImagePath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := interp.LoadSnapshot(f); err != nil {
			return err
		}
	}

	return interp.Run()
}
