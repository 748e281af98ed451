package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mangascout/internal/domain"
	"mangascout/internal/engine"
	"mangascout/internal/files"
	"mangascout/internal/parse"
	"mangascout/internal/ui"

	"github.com/spf13/cobra"
)

// chapters saved at the same time, each with its own image workers
const maxParallelChapters = 3

var downloadCmd = &cobra.Command{
	Use:   "download <title url>",
	Short: "Download chapters of a title",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		if !cmd.Flags().Changed("first") && !cmd.Flags().Changed("chapters") {
			latest = true
		}

		progress := ui.NewProgress(os.Stdout)

		a, err := newApp(progress.Track, downloadOverrides)
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		root := a.cfg.Config.DownloadLocation
		if err := files.IsValidLocation(root); err != nil {
			fmt.Println("Invalid location:", err)
			return
		}

		title, err := a.engine.GetDetails(ctx, args[0])
		if err != nil {
			fmt.Printf("Failed to get details for %q: %v\n", args[0], err)
			return
		}

		if len(title.Chapters) == 0 {
			fmt.Printf("No chapters found for %q\n", title.Title)
			return
		}

		var positions []int

		switch {
		case first:
			positions = []int{0}
		case latest:
			positions = []int{len(title.Chapters) - 1}
		default:
			positions, err = parse.ChapterSelection(chapterNumbers, title.Chapters)
			if err != nil {
				fmt.Printf("Failed to parse chapter selection for %q: %v\n", title.Title, err)
				return
			}
		}

		if len(positions) == 0 {
			fmt.Printf("Failed to find matching chapters in range %s for %q\n", chapterNumbers, title.Title)
			return
		}

		selected := make([]domain.ChapterRef, 0, len(positions))
		for _, i := range positions {
			selected = append(selected, title.Chapters[i])
		}

		saveChapters(ctx, a, progress, title, selected, root)
	},
}

func downloadOverrides(c *domain.Config) {
	if downloadDirectory != "" {
		c.DownloadLocation = downloadDirectory
	}
	if naming != "" {
		c.NamingTemplate = naming
	}
	if archiveFormat != "" {
		c.ArchiveFormat = archiveFormat
	}
}

// saveChapters downloads chapters of title below root, skipping the ones
// already on disk, and prints a line per chapter once all bars are done.
func saveChapters(ctx context.Context, a *app, progress *ui.Progress, title domain.Title, chapters []domain.ChapterRef, root string) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		lines []string
		sem   = make(chan struct{}, maxParallelChapters)
	)

	report := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	for _, chapter := range chapters {
		if saved, where := alreadySaved(ctx, a, title, chapter, root); saved {
			report("Chapter has already been downloaded, skipping %q (%s)", chapter.Title, where)
			continue
		}

		progress.Chapter(chapter.URL, chapter.Title)
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer progress.Done(chapter.URL)

			sem <- struct{}{}
			defer func() { <-sem }()

			r, err := a.engine.SaveChapter(ctx, title, chapter, root)
			if err != nil {
				report("Failed to download chapter %q: %v", chapter.Title, err)
				return
			}

			if r.Failed > 0 {
				report("Downloaded %q with %d of %d pages missing", chapter.Title, r.Failed, len(r.Files))
				return
			}

			where := r.Dir
			if r.ArchivePath != "" {
				where = r.ArchivePath
			}
			report("Finished downloading %q to %s", chapter.Title, where)
		}()
	}

	wg.Wait()
	progress.Wait()

	for _, l := range lines {
		fmt.Println(l)
	}
}

// alreadySaved checks the database first and falls back to the files a
// finished download leaves behind. A chapter with failed pages is not saved.
func alreadySaved(ctx context.Context, a *app, title domain.Title, chapter domain.ChapterRef, root string) (bool, string) {
	if a.store != nil {
		saved, err := a.store.ChapterSaved(ctx, chapter.URL)
		if err != nil {
			a.log.Warn().Err(err).Str("chapter", chapter.URL).Msg("could not check database")
		}
		if saved {
			return true, "database"
		}
	}

	dir := a.engine.ChapterDir(root, title, chapter)

	switch a.cfg.Config.ArchiveFormat {
	case engine.ArchiveCBZ:
		if _, err := os.Stat(dir + ".cbz"); err == nil {
			return true, dir + ".cbz"
		}
	case engine.ArchivePDF:
		if _, err := os.Stat(dir + ".pdf"); err == nil {
			return true, dir + ".pdf"
		}
	}

	complete, err := files.Complete(dir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", dir).Msg("could not read manifest")
	}
	if complete {
		return true, filepath.Join(dir, files.ManifestName)
	}
	return false, ""
}
