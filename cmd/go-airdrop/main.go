package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rsilvagit/go-airdrop/internal/app"
	"github.com/rsilvagit/go-airdrop/internal/config"
	"github.com/rsilvagit/go-airdrop/internal/scheduler"
	"github.com/rsilvagit/go-airdrop/internal/version"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("go-airdrop", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "Path to the YAML or JSON config file")
	once := fs.Bool("once", false, "Run a single scan, print and notify, then exit")
	job := fs.String("job", "", "Run one job immediately and exit: scan, reminder or report")
	logLevel := fs.String("log-level", "", "Override log_level: debug, info, warn, error")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *showVersion {
		fmt.Println(version.String())
		return exitOK
	}

	if *once {
		if *job != "" && *job != scheduler.JobScan {
			fmt.Fprintln(os.Stderr, "Error: -once and -job cannot be combined")
			return exitUsage
		}
		*job = scheduler.JobScan
	}
	switch *job {
	case "", scheduler.JobScan, scheduler.JobReminder, scheduler.JobReport:
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown job %q (want scan, reminder or report)\n", *job)
		fs.Usage()
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Options{ConfigPath: *configPath, LogLevel: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "go-airdrop failed to start: %v\n", err)
		return exitFailed
	}
	defer a.Close()

	if *job != "" {
		if err := a.RunJob(ctx, *job); err != nil {
			fmt.Fprintf(os.Stderr, "go-airdrop: %s failed: %v\n", *job, err)
			return exitFailed
		}
		return exitOK
	}

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "go-airdrop: %v\n", err)
		return exitFailed
	}
	return exitOK
}
