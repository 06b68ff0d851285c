package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"anitag/internal/anime"
	"anitag/internal/kvstore"
	"anitag/internal/workflow"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the title cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached titles and the anime they resolved to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTitleStore(cmd, ctx, func(store kvstore.Store[anime.ResolvedAnime]) error {
				printCacheEntries(cmd.OutOrStdout(), store)
				return nil
			})
		},
	}
}

func printCacheEntries(out io.Writer, store kvstore.Store[anime.ResolvedAnime]) {
	keys := store.Keys()
	if len(keys) == 0 {
		fmt.Fprintln(out, "Cached titles: none")
		return
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		record, ok := store.Get(key)
		if !ok {
			continue
		}
		ann := ""
		if record.CrossRefID > 0 {
			ann = strconv.Itoa(record.CrossRefID)
		}
		rows = append(rows, []string{
			key,
			record.Title,
			strconv.Itoa(record.MalID),
			ann,
			strconv.Itoa(len(record.Music.Opening)),
			strconv.Itoa(len(record.Music.Ending)),
			strconv.Itoa(len(record.Music.Insert)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Title", "Anime", "MAL", "ANN", "OP", "ED", "IN"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <title>...",
		Short: "Forget cached titles so the next batch resolves them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTitleStore(cmd, ctx, func(store kvstore.Store[anime.ResolvedAnime]) error {
				out := cmd.OutOrStdout()
				for _, title := range args {
					if store.Delete(title) {
						fmt.Fprintf(out, "Removed %q\n", title)
					} else {
						fmt.Fprintf(out, "Not cached: %q\n", title)
					}
				}
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached title",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTitleStore(cmd, ctx, func(store kvstore.Store[anime.ResolvedAnime]) error {
				count := store.Len()
				store.Clear()
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached titles\n", count)
				return nil
			})
		},
	}
}

// withTitleStore opens the title cache, runs fn, then flushes and closes it.
func withTitleStore(cmd *cobra.Command, ctx *commandContext, fn func(kvstore.Store[anime.ResolvedAnime]) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger("cli-cache")
	if err != nil {
		return err
	}
	store, err := workflow.OpenTitleStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := fn(store); err != nil {
		return err
	}
	if err := store.Flush(cmd.Context()); err != nil {
		return fmt.Errorf("flush title cache: %w", err)
	}
	return nil
}
