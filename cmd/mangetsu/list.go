package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all manga in your library",
	Long:  "Display all manga in your library in a formatted table",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		if ctl.Library == nil {
			cobra.CheckErr(errNoLibrary)
		}

		mangas, err := ctl.Library.ListMangas()
		cobra.CheckErr(err)

		if len(mangas) == 0 {
			fmt.Println("No manga in library. Use 'mangetsu add' or download a chapter first.")
			return
		}

		columns := []table.Column{
			{Title: "Name", Width: 40},
			{Title: "Source", Width: 12},
			{Title: "Downloaded", Width: 12},
		}

		rows := []table.Row{}
		for _, manga := range mangas {
			downloaded, err := ctl.Library.DownloadedChapters(manga.URL)
			if err != nil {
				ctl.Log.Warn("failed to count chapters", "manga", manga.URL, "err", err)
			}
			rows = append(rows, table.Row{
				truncateString(manga.Title, 38),
				string(manga.Connector),
				fmt.Sprintf("%d", len(downloaded)),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = lipgloss.NewStyle()
		t.SetStyles(s)

		fmt.Printf("\nLibrary (%d manga)\n\n", len(mangas))
		fmt.Println(t.View())
	},
}
