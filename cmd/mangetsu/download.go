package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [manga-url]",
	Short: "Download manga chapters",
	Long:  "Download chapters of a manga, oldest first. Chapters are numbered as 'mangetsu chapters' lists them.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chaptersFlag, _ := cmd.Flags().GetString("chapters")
		export, _ := cmd.Flags().GetBool("epub")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		manga, chapters, err := fetchChapters(ctx, ctl, args[0])
		cobra.CheckErr(err)

		start, end, err := parseChapterRange(chaptersFlag, len(chapters))
		cobra.CheckErr(err)
		selected := chapters[start-1 : end]

		fmt.Printf("Downloading %d chapter(s) of %s\n", len(selected), manga.Title)

		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
		var failed int
		for _, chapter := range selected {
			label := truncateString(chapter.Title, 30)
			_, err := ctl.Downloader.Download(ctx, chapter, func(_ data.Chapter, p float64) {
				fmt.Printf("\r  %-30s %s", label, bar.ViewAs(p))
			})
			fmt.Println()
			if ctx.Err() != nil {
				cobra.CheckErr(ctx.Err())
			}
			if err != nil {
				failed++
				fmt.Printf("  %s failed: %v\n", label, err)
			}
		}

		if failed > 0 {
			fmt.Printf("%d of %d chapter(s) failed\n", failed, len(selected))
		} else {
			fmt.Println("Download complete")
		}

		if export {
			path, err := ctl.Exporter.ExportManga(ctl.Downloader.MangaDir(manga))
			if err != nil {
				cobra.CheckErr(fmt.Errorf("EPUB generation failed: %w", err))
			}
			fmt.Printf("EPUB created: %s\n", path)
		}
	},
}

func init() {
	downloadCmd.Flags().StringP("chapters", "c", "", "Chapter range, 1-based and inclusive (e.g. 1-10 or 5)")
	downloadCmd.Flags().Bool("epub", false, "Export the manga to EPUB after downloading")
}

// parseChapterRange turns "a-b", "a" or "" into a 1-based inclusive range
// over total chapters. An open end ("5-") runs to the last chapter.
func parseChapterRange(s string, total int) (int, int, error) {
	if total == 0 {
		return 0, 0, fmt.Errorf("manga has no chapters")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, total, nil
	}

	from, to, isRange := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chapter range %q, use --chapters 1-10", s)
	}
	end := start
	if isRange {
		end = total
		if to = strings.TrimSpace(to); to != "" {
			if end, err = strconv.Atoi(to); err != nil {
				return 0, 0, fmt.Errorf("invalid chapter range %q, use --chapters 1-10", s)
			}
		}
	}

	if start < 1 || end > total || start > end {
		return 0, 0, fmt.Errorf("chapter range %q is outside 1-%d", s, total)
	}
	return start, end, nil
}
