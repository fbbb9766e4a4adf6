package cmd

import (
	"fmt"

	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/spf13/cobra"
)

var epubCmd = &cobra.Command{
	Use:   "epub [download-dir]",
	Short: "Generate an EPUB from downloaded chapters",
	Long:  "Export a downloaded chapter directory, or a whole manga directory, to an EPUB file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := args[0]

		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		chapterDir, err := isChapterDir(dir)
		cobra.CheckErr(err)

		var path string
		if chapterDir {
			path, err = ctl.Exporter.ExportChapter(dir)
		} else {
			path, err = ctl.Exporter.ExportManga(dir)
		}
		if err != nil {
			cobra.CheckErr(fmt.Errorf("EPUB generation failed: %w", err))
		}
		fmt.Printf("EPUB created: %s\n", path)
	},
}

// isChapterDir reports whether dir holds chapter metadata rather than manga
// metadata. Chapter metadata embeds its manga.
func isChapterDir(dir string) (bool, error) {
	chapter, err := data.ReadChapterMetadata(dir)
	if err != nil {
		return false, err
	}
	return chapter.Manga.URL != "", nil
}
