package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mangascout/internal/files"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the configured manga for new chapters",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(nil)
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
		defer a.Close()

		log := a.log
		root := a.cfg.Config.DownloadLocation

		if err := files.IsValidLocation(root); err != nil {
			log.Fatal().Err(err).Msgf("invalid download location")
		}

		if len(a.cfg.Config.MonitoredManga) == 0 {
			log.Warn().Msg("no monitored manga configured")
		}

		log.Info().Msg("starting to monitor configured manga")

		interval := max(a.cfg.Config.CheckInterval, 1)
		ticker := time.NewTicker(time.Duration(interval) * time.Minute)
		defer ticker.Stop()

		wg := sync.WaitGroup{}

		check := func() {
			runID := uuid.NewString()

			for name, monitored := range a.cfg.Config.MonitoredManga {
				wg.Add(1)

				go func() {
					defer wg.Done()

					mLog := log.With().Str("run", runID).Str("manga", name).Logger()

					title, err := a.engine.GetDetails(ctx, monitored.URL)
					if err != nil {
						mLog.Error().Err(err).Msgf("error getting details from %s", monitored.URL)
						return
					}

					if len(title.Chapters) == 0 {
						mLog.Error().Msg("error finding latest chapter")
						return
					}
					chapter := title.Chapters[len(title.Chapters)-1]
					mLog = mLog.With().Str("source", title.Source).Str("chapter", chapter.Title).Logger()

					if saved, where := alreadySaved(ctx, a, title, chapter, root); saved {
						mLog.Debug().Msgf("chapter has already been downloaded, skipping (%s)", where)
						return
					}

					mLog.Info().Msg("downloading new chapter")
					r, err := a.engine.SaveChapter(ctx, title, chapter, root)
					if err != nil {
						mLog.Error().Err(err).Msg("error downloading chapter")
						return
					}
					if r.Failed > 0 {
						mLog.Warn().Int("failed", r.Failed).Int("pages", len(r.Files)).Msg("chapter downloaded with missing pages")
						return
					}
					mLog.Info().Str("dir", r.Dir).Msg("finished downloading chapter")
				}()
			}

			wg.Wait()
		}

		done := make(chan struct{})

		go func() {
			defer close(done)

			check()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					check()
				}
			}
		}()

		// set up a channel to catch signals for graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

		fmt.Printf("received signal: %s, stopping monitoring.\n", <-sigCh)
		cancel()
		<-done
	},
}
