package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/services"
	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters [manga-url]",
	Short: "List the chapters of a manga",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		manga, chapters, err := fetchChapters(cmd.Context(), ctl, args[0])
		cobra.CheckErr(err)

		downloaded := map[string]string{}
		if ctl.Library != nil {
			downloaded, err = ctl.Library.DownloadedChapters(manga.URL)
			cobra.CheckErr(err)
		}

		rows := make([][]string, 0, len(chapters))
		for i, chapter := range chapters {
			state := ""
			if _, ok := downloaded[chapter.URL]; ok {
				state = "downloaded"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				truncateString(chapter.Title, 50),
				state,
			})
		}

		fmt.Printf("\n%s (%d chapters)\n\n", manga.Title, len(chapters))
		fmt.Println(renderTable([]string{"#", "Chapter", "State"}, rows))
	},
}

// fetchChapters resolves a manga URL and lists its chapters oldest first.
func fetchChapters(ctx context.Context, ctl *services.Controller, url string) (data.Manga, []data.Chapter, error) {
	manga, err := ctl.FetchMangaDetail(ctx, url)
	if err != nil {
		return data.Manga{}, nil, fmt.Errorf("failed to fetch manga: %w", err)
	}
	chapters, err := ctl.ListChapters(ctx, manga)
	if err != nil {
		return data.Manga{}, nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	chapters = slices.Clone(chapters)
	slices.Reverse(chapters)
	return manga, chapters, nil
}
