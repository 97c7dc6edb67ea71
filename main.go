package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"peinspect/config"
	"peinspect/logger"
)

const versionString = "peinspect 0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// appState is filled by the root flags and the config file before any
// subcommand runs.
type appState struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
	log logger.Logger
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	st := &appState{}
	return &cli.Command{
		Name:      "peinspect",
		Usage:     "Structural analyzer for Windows PE executables",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(st),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := st.load(cmd, stderr); err != nil {
				return ctx, err
			}
			return logger.WithContext(ctx, st.log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			analyzeCmd(st),
			serveCmd(st),
			versionCmd(),
		},
	}
}

// load reads the config file and builds the logger. Flags given on the
// command line win over the file.
func (st *appState) load(cmd *cli.Command, stderr io.Writer) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return err
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = st.logLevel
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = st.logFormat
	}

	log, err := logger.Open(stderr, cfg.LogFormat, cfg.LogLevel, isTerminal(stderr))
	if err != nil {
		return err
	}
	st.cfg = cfg
	st.log = log
	return nil
}
