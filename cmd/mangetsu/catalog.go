package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show a listing page from every connector",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		page, _ := cmd.Flags().GetInt("page")

		ctl, closer, err := newController()
		cobra.CheckErr(err)
		defer closer.Close()

		var mangas []data.Manga
		for manga, err := range ctl.Catalog(cmd.Context(), page) {
			cobra.CheckErr(err)
			mangas = append(mangas, manga)
		}

		if len(mangas) == 0 {
			fmt.Printf("No manga on page %d.\n", page)
			return
		}

		rows := make([][]string, 0, len(mangas))
		for i, manga := range mangas {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				truncateString(manga.Title, 40),
				string(manga.Connector),
				manga.URL,
			})
		}

		fmt.Printf("\nCatalog page %d (%d manga)\n\n", page, len(mangas))
		fmt.Println(renderTable([]string{"#", "Title", "Connector", "URL"}, rows))
	},
}

func init() {
	catalogCmd.Flags().IntP("page", "p", 1, "Listing page to fetch")
}

func renderTable(headers []string, rows [][]string) *table.Table {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
