package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNoLibrary = errors.New("library is not available, check library.path in the config")

var addCmd = &cobra.Command{
	Use:   "add [manga-url]",
	Short: "Add a manga to your library",
	Long:  "Fetch a manga's details and save it to your library without downloading chapters",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		if ctl.Library == nil {
			cobra.CheckErr(errNoLibrary)
		}

		manga, err := ctl.FetchMangaDetail(cmd.Context(), args[0])
		cobra.CheckErr(err)

		if err := ctl.Library.SaveManga(manga); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to save manga: %w", err))
		}

		fmt.Printf("Added '%s' to library\n", manga.Title)
		fmt.Printf("To download chapters, use: mangetsu download %q --chapters 1-10\n", manga.URL)
	},
}
