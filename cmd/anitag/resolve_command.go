package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"anitag/internal/anime"
	"anitag/internal/config"
	"anitag/internal/identification"
	"anitag/internal/workflow"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var req anime.TrackRequirement

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Resolve one anime title and print its soundtrack",
		Long: "Run a single title through the catalog, encyclopedia and song database\n" +
			"exactly as a batch would. The result is cached like any other title.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return ctx.withServices(cmd, func(_ *config.Config, _ *slog.Logger, services *workflow.Services) error {
				result, err := services.Engine.Resolve(cmd.Context(), title, req)
				if err != nil {
					return err
				}
				printResolveResult(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
				return result.Err()
			})
		},
	}
	cmd.Flags().IntVar(&req.Opening, "openings", 0, "Minimum number of openings the soundtrack must list")
	cmd.Flags().IntVar(&req.Ending, "endings", 0, "Minimum number of endings the soundtrack must list")
	cmd.Flags().IntVar(&req.Insert, "inserts", 0, "Minimum number of insert songs a fallback match must list")
	return cmd
}

func printResolveResult(out io.Writer, result identification.Result, colorize bool) {
	for _, line := range renderSectionHeader(result.Title, colorize) {
		fmt.Fprintln(out, line)
	}

	kind := statusOK
	if !result.Resolved() {
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("State", kind, string(result.State), colorize))
	if result.Source != "" {
		fmt.Fprintln(out, renderStatusLine("Source", statusInfo, string(result.Source), colorize))
	}
	if len(result.Transitions) > 0 {
		steps := make([]string, len(result.Transitions))
		for i, state := range result.Transitions {
			steps[i] = string(state)
		}
		fmt.Fprintln(out, renderStatusLine("Path", statusInfo, strings.Join(steps, " -> "), colorize))
	}

	if len(result.Rejections) > 0 {
		rows := make([][]string, 0, len(result.Rejections))
		for _, rejection := range result.Rejections {
			rows = append(rows, []string{strconv.Itoa(rejection.MalID), rejection.Title, rejection.Reason})
		}
		fmt.Fprintln(out, renderTable([]string{"MAL", "Candidate", "Rejected because"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft}))
	}

	if result.Anime == nil {
		return
	}
	record := result.Anime
	fmt.Fprintln(out, renderStatusLine("Anime", statusInfo, fmt.Sprintf("%s (%s %d)", record.Title, record.Type, record.Year), colorize))
	fmt.Fprintln(out, renderStatusLine("MyAnimeList", statusInfo, strconv.Itoa(record.MalID), colorize))
	if record.CrossRefID > 0 {
		fmt.Fprintln(out, renderStatusLine("ANN", statusInfo, strconv.Itoa(record.CrossRefID), colorize))
	}
	fmt.Fprintln(out, renderSoundtrack(record.Music))
}

func renderSoundtrack(music anime.Soundtrack) string {
	var rows [][]string
	for _, kind := range anime.TrackTypes {
		for _, song := range music.Songs(kind) {
			rows = append(rows, []string{kind.Code() + strconv.Itoa(song.Number), song.Title, song.Artist})
		}
	}
	if len(rows) == 0 {
		return "No songs listed"
	}
	return renderTable([]string{"Track", "Title", "Artist"}, rows, nil)
}
