package cmd

import (
	"fmt"
	"os"
	"strings"

	"mangascout/internal/domain"
	"mangascout/internal/engine"
	"mangascout/internal/files"
	"mangascout/internal/ui"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const downloadAllLabel = "Download all chapters"

var browseCmd = &cobra.Command{
	Use:   "browse <query>",
	Short: "Search interactively, then pick a title and a chapter to download",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		progress := ui.NewProgress(os.Stdout)

		a, err := newApp(progress.Track, downloadOverrides)
		if err != nil {
			return err
		}
		defer a.Close()

		root := a.cfg.Config.DownloadLocation
		if err := files.IsValidLocation(root); err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}

		query := strings.Join(args, " ")
		results, errs, err := a.engine.Search(ctx, query, engine.AllSources)
		if err != nil {
			return err
		}
		for _, e := range errs {
			fmt.Printf("%s failed: %v\n", e.Source, e.Err)
		}
		if len(results) == 0 {
			return fmt.Errorf("no results for %q", query)
		}

		items := make([]string, 0, len(results))
		for _, r := range results {
			items = append(items, fmt.Sprintf("%s  [%s, %d%%]", r.Title, r.Source, r.Similarity))
		}

		prompt := promptui.Select{
			Label:    "Select title",
			Items:    items,
			Size:     15,
			Searcher: contains(items),
		}

		idx, _, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("selection cancelled")
		}

		title, err := a.engine.GetDetails(ctx, results[idx].URL)
		if err != nil {
			return err
		}
		if len(title.Chapters) == 0 {
			return fmt.Errorf("no chapters found for %q", title.Title)
		}

		// newest first
		items = []string{downloadAllLabel}
		for i := len(title.Chapters) - 1; i >= 0; i-- {
			items = append(items, title.Chapters[i].Title)
		}

		prompt = promptui.Select{
			Label:    "Select chapter of " + title.Title,
			Items:    items,
			Size:     15,
			Searcher: contains(items),
		}

		idx, _, err = prompt.Run()
		if err != nil {
			return fmt.Errorf("selection cancelled")
		}

		var selected []domain.ChapterRef
		if idx == 0 {
			selected = title.Chapters
		} else {
			selected = []domain.ChapterRef{title.Chapters[len(title.Chapters)-idx]}
		}

		saveChapters(ctx, a, progress, title, selected, root)
		return nil
	},
}

func contains(items []string) func(string, int) bool {
	return func(input string, index int) bool {
		return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
	}
}
