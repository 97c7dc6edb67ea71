package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"peinspect/common"
	"peinspect/logger"
	"peinspect/perw"
)

var (
	ErrNoInput        = errors.New("no input files")
	ErrNotRegular     = errors.New("not a regular file")
	ErrFileTooLarge   = errors.New("file exceeds maximum size")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrThreshold      = errors.New("status threshold reached")
)

func analyzeCmd(st *appState) *cli.Command {
	o := &analyzeOptions{}
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze one or more PE files",
		ArgsUsage: "FILE...",
		Flags:     analyzeFlags(o),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.IsSet("workers") {
				o.workers = int64(st.cfg.Workers)
			}
			if !cmd.IsSet("max-size") {
				o.maxSize = st.cfg.MaxFileSize
			}
			return runAnalyze(ctx, cmd.Root().Writer, o, cmd.Args().Slice())
		},
	}
}

func parseFailOn(s string) (perw.Status, bool, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, false, nil
	case "suspicious":
		return perw.StatusSuspicious, true, nil
	case "corrupted":
		return perw.StatusCorrupted, true, nil
	default:
		return 0, false, fmt.Errorf("invalid --fail-on %q (want suspicious or corrupted)", s)
	}
}

func runAnalyze(ctx context.Context, w io.Writer, o *analyzeOptions, files []string) error {
	if len(files) == 0 {
		return ErrNoInput
	}
	threshold, useThreshold, err := parseFailOn(o.failOn)
	if err != nil {
		return err
	}
	if o.format != "text" && o.format != "json" {
		return fmt.Errorf("invalid --format %q (want text or json)", o.format)
	}

	log := logger.FromContext(ctx)
	results := make([]*common.Result, len(files))

	if o.parallel && len(files) > 1 {
		var g errgroup.Group
		g.SetLimit(int(max(1, o.workers)))
		for i, name := range files {
			g.Go(func() error {
				results[i] = inspectFile(name, o.maxSize)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, name := range files {
			results[i] = inspectFile(name, o.maxSize)
		}
	}

	var failed, flagged int
	for _, res := range results {
		logResult(log, res)
		if res.Failed() {
			failed++
		}
		if useThreshold && res.AtLeast(threshold) {
			flagged++
		}
	}

	if o.format == "json" {
		if err := common.WriteJSON(w, results, true); err != nil {
			return err
		}
	} else {
		opts := common.TextOptions{}
		if !o.noColor && isTerminal(w) {
			opts = common.TextOptions{Emoji: true, Color: true}
		}
		for _, res := range results {
			if err := common.WriteText(w, res, opts); err != nil {
				return err
			}
		}
		if len(results) > 1 {
			printSummary(w, results)
		}
	}

	switch {
	case failed > 0:
		return fmt.Errorf("%w: %d of %d files could not be analyzed", ErrAnalysisFailed, failed, len(files))
	case flagged > 0:
		return fmt.Errorf("%w: %d of %d files are %s or worse", ErrThreshold, flagged, len(files), strings.ToLower(threshold.String()))
	}
	return nil
}

// inspectFile never fails outright; every problem ends up in the result.
func inspectFile(name string, maxSize int64) *common.Result {
	info, err := os.Stat(name)
	if err != nil {
		return common.Failure(name, fmt.Errorf("cannot access file: %w", err))
	}
	if !info.Mode().IsRegular() {
		return common.Failure(name, ErrNotRegular)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return common.Failure(name, fmt.Errorf("%w (%d > %d bytes)", ErrFileTooLarge, info.Size(), maxSize))
	}

	f, err := os.Open(name)
	if err != nil {
		return common.Failure(name, fmt.Errorf("failed to open file: %w", err))
	}
	defer func(f *os.File) { _ = f.Close() }(f)

	return common.Inspect(name, f, info.Size())
}

func logResult(log logger.Logger, res *common.Result) {
	switch {
	case res.Report != nil:
		log.Debug("analyzed", "file", res.Filename, "status", res.Report.Status,
			"warnings", len(res.Report.Warnings))
	case res.Rejected():
		log.Warn("rejected", "file", res.Filename, "error", res.Err)
	default:
		log.Error("analysis failed", "file", res.Filename, "error", res.Err)
	}
}

func printSummary(w io.Writer, results []*common.Result) {
	counts := map[string]int{}
	for _, res := range results {
		counts[res.Verdict()]++
	}
	_, _ = fmt.Fprintf(w, "Summary:\n")
	_, _ = fmt.Fprintf(w, "  Files analyzed: %d\n", len(results))
	for _, v := range []string{"Clean", "Suspicious", "Corrupted", "Rejected", "Error"} {
		if counts[v] > 0 {
			_, _ = fmt.Fprintf(w, "  %-15s %d\n", v+":", counts[v])
		}
	}
}
