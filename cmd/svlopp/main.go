// Command svlopp supervises a declared set of long-running processes.
// Usage: svlopp [--run-dir PATH] <config.toml>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"go.unsigned.dev/svlopp/config"
	"go.unsigned.dev/svlopp/supervisor"
)

var runDir string

func init() {
	flag.StringVar(&runDir, "run-dir", "/run/svlopp", "runtime directory for the control fifo, status file, and lock")
	flag.Usage = func() {
		f := func(f string, v ...interface{}) {
			fmt.Fprintf(flag.CommandLine.Output(), f, v...)
		}

		f("Usage:\n")
		f("  %s [--run-dir PATH] <config.toml>\n", filepath.Base(os.Args[0]))
		f("\n")
		f("Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
}

func main() {
	if err := run(flag.Arg(0)); err != nil {
		log.Fatalln(err)
	}
}

func run(configPath string) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errors.Wrap(err, "create run directory")
	}

	lock, err := supervisor.AcquireRunDirLock(filepath.Join(runDir, "lock"))
	if err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			log.Println("svlopp is already running against this run directory")
			return nil
		}
		return errors.Wrap(err, "acquire run directory lock")
	}
	defer lock.Release()

	initial, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "load initial configuration")
	}

	journalFile, err := os.OpenFile(filepath.Join(runDir, "journal.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open journal file")
	}
	defer journalFile.Close()

	// Every event is written both to <run_dir>/journal.log and to stderr.
	journaler := supervisor.NewMultiJournaler(
		supervisor.NewHumanJournaler(journalFile),
		supervisor.NewHumanJournaler(os.Stderr),
	)

	engine, err := supervisor.NewEngine(supervisor.Config{
		StatusPath:  filepath.Join(runDir, "status"),
		ControlPath: filepath.Join(runDir, "control"),
		Journal:     journaler,
		LoadConfig: func() (map[string]supervisor.ServiceSpec, error) {
			return config.Load(configPath)
		},
	})
	if err != nil {
		return errors.Wrap(err, "initialize event loop")
	}
	defer engine.Close()

	return engine.Run(initial)
}
