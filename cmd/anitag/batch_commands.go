package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"anitag/internal/config"
	"anitag/internal/library"
	"anitag/internal/selftest"
	"anitag/internal/workflow"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	var selfTest bool

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Resolve and tag every song in the library",
		Long: "Scan the library for files named \"<Title> OP1.mp3\", \"<Title> ED2.mp3\" or\n" +
			"\"<Title> IN1.mp3\", resolve each title and write ID3 tags with cover art.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(cmd, ctx, selfTestMode(cmd, ctx, selfTest))
		},
	}
	cmd.Flags().BoolVar(&selfTest, "selftest", false, "Verify existing tags by reverse lookup instead of writing (overrides selftest.enabled)")
	return cmd
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Rename release filenames into the \"<Title> OP1.mp3\" form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, ctx, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned renames without applying them")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var selfTest bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize filenames, then tag the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runNormalize(cmd, ctx, false); err != nil {
				return err
			}
			return runTag(cmd, ctx, selfTestMode(cmd, ctx, selfTest))
		},
	}
	cmd.Flags().BoolVar(&selfTest, "selftest", false, "Verify existing tags by reverse lookup instead of writing (overrides selftest.enabled)")
	return cmd
}

// selfTestMode prefers an explicit --selftest over the configured default.
func selfTestMode(cmd *cobra.Command, ctx *commandContext, flagValue bool) bool {
	if cmd.Flags().Changed("selftest") {
		return flagValue
	}
	cfg, err := ctx.ensureConfig()
	if err != nil || cfg == nil {
		return false
	}
	return cfg.SelfTest.Enabled
}

func runTag(cmd *cobra.Command, ctx *commandContext, selfTest bool) error {
	return ctx.withServices(cmd, func(cfg *config.Config, logger *slog.Logger, services *workflow.Services) error {
		manager := services.Manager(cfg, logger)
		summary, err := manager.Run(cmd.Context(), workflow.RunOptions{SelfTest: selfTest})
		out := cmd.OutOrStdout()
		printSummary(out, summary, shouldColorize(out))
		if summary.SelfTest != nil {
			printSelfTestReport(out, *summary.SelfTest, cfg.StatsPath())
		}
		return err
	})
}

func runNormalize(cmd *cobra.Command, ctx *commandContext, dryRun bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger("cli")
	if err != nil {
		return err
	}
	manager := workflow.NewManager(cfg, nil, workflow.WithLogger(logger))
	report, err := manager.Normalize(cmd.Context(), dryRun)
	printNormalizeReport(cmd.OutOrStdout(), report, dryRun)
	return err
}

func printNormalizeReport(out io.Writer, report library.NormalizeReport, dryRun bool) {
	verb := "Renamed"
	if dryRun {
		verb = "Would rename"
	}
	fmt.Fprintf(out, "%s %d of %d files\n", verb, len(report.Renamed), report.Scanned)
	if len(report.Renamed) > 0 {
		rows := make([][]string, 0, len(report.Renamed))
		for _, rename := range report.Renamed {
			rows = append(rows, []string{filepath.Base(rename.From), filepath.Base(rename.To)})
		}
		fmt.Fprintln(out, renderTable([]string{"From", "To"}, rows, nil))
	}
	if len(report.Conflicts) > 0 {
		fmt.Fprintf(out, "Skipped %d renames whose target already exists:\n", len(report.Conflicts))
		for _, conflict := range report.Conflicts {
			fmt.Fprintf(out, "  %s -> %s\n", filepath.Base(conflict.From), filepath.Base(conflict.To))
		}
	}
}

func printSummary(out io.Writer, summary workflow.Summary, colorize bool) {
	for _, line := range renderSectionHeader("Batch "+summary.RunID, colorize) {
		fmt.Fprintln(out, line)
	}
	lines := []string{
		renderStatusLine("Scanned", statusInfo, strconv.Itoa(summary.Scanned), colorize),
		renderStatusLine("Tagged", countKind(summary.Tagged, statusOK), strconv.Itoa(summary.Tagged), colorize),
	}
	if summary.SelfTest != nil {
		lines = append(lines, renderStatusLine("Verified", countKind(summary.Verified, statusOK), strconv.Itoa(summary.Verified), colorize))
	}
	lines = append(lines,
		renderStatusLine("Cache hits", statusInfo, strconv.Itoa(summary.CacheHits), colorize),
		renderStatusLine("Fallbacks", statusInfo, strconv.Itoa(summary.Fallbacks), colorize),
		renderStatusLine("Failed", countKind(summary.Failed(), statusWarn), strconv.Itoa(summary.Failed()), colorize),
		renderStatusLine("Duration", statusInfo, summary.Duration.Round(time.Millisecond).String(), colorize),
	)
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if len(summary.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(summary.Failures))
	for _, failure := range summary.Failures {
		rows = append(rows, []string{filepath.Base(failure.Path), failure.Stage, failure.Reason})
	}
	fmt.Fprintln(out, renderTable([]string{"File", "Stage", "Reason"}, rows, nil))
}

func printSelfTestReport(out io.Writer, report selftest.Report, path string) {
	fmt.Fprintf(out, "Self-test: %d passed, %d failed, hit rate %.1f%% (written to %s)\n",
		report.Successes, report.Failures, report.HitRate*100, path)
	if len(report.FailureList) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.FailureList))
	for _, failure := range report.FailureList {
		expected := ""
		if failure.ExpectedID > 0 {
			expected = strconv.Itoa(failure.ExpectedID)
		}
		found := make([]string, 0, len(failure.FoundIDs))
		for _, id := range failure.FoundIDs {
			found = append(found, strconv.Itoa(id))
		}
		rows = append(rows, []string{failure.Filename, expected, strings.Join(found, ", "), failure.Reason})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Expected ANN", "Found ANN", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
}
