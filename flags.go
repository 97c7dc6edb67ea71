package main

import (
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"peinspect/config"
)

func globalFlags(st *appState) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to a YAML or TOML config file",
			Value:       config.DefaultPath(),
			Destination: &st.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &st.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &st.logFormat,
		},
	}
}

type analyzeOptions struct {
	format   string
	workers  int64
	parallel bool
	failOn   string
	maxSize  int64
	noColor  bool
}

func analyzeFlags(o *analyzeOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "output format (text, json)",
			Value:       "text",
			Destination: &o.format,
		},
		&cli.BoolFlag{
			Name:        "parallel",
			Aliases:     []string{"j"},
			Usage:       "analyze files in parallel",
			Destination: &o.parallel,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Aliases:     []string{"w"},
			Usage:       "maximum number of parallel workers",
			Value:       4,
			Destination: &o.workers,
		},
		&cli.StringFlag{
			Name:        "fail-on",
			Usage:       "exit non-zero when a file is at least this bad (suspicious, corrupted)",
			Destination: &o.failOn,
		},
		&cli.Int64Flag{
			Name:        "max-size",
			Usage:       "skip files larger than this many bytes",
			Value:       config.DefaultMaxFileSize,
			Destination: &o.maxSize,
		},
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "disable colors and emoji even on a terminal",
			Destination: &o.noColor,
		},
	}
}

// isTerminal is false for anything but a terminal *os.File.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
