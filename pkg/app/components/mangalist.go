package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/data"
)

// cardLines is the height of a rendered card, borders included.
const cardLines = IconRows + 2

type MangaListItem struct {
	Manga data.Manga
	// Icon is the rendered cover; empty shows the placeholder.
	Icon   string
	Detail string
}

// MangaList is a vertical list of manga cards with a single selection.
type MangaList struct {
	Items         []MangaListItem
	SelectedIndex int
	Width         int
	Height        int
	Empty         string
	// Loading is shown in place of icons that have not arrived yet.
	Loading string
}

func NewMangaList(empty string) *MangaList {
	return &MangaList{
		Items:   []MangaListItem{},
		Width:   80,
		Height:  20,
		Empty:   empty,
		Loading: "…",
	}
}

func (m *MangaList) SetItems(items []MangaListItem) {
	m.Items = items
	if m.SelectedIndex >= len(items) && len(items) > 0 {
		m.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		m.SelectedIndex = 0
	}
}

// Prepend puts item at the top and keeps the same entry selected.
func (m *MangaList) Prepend(item MangaListItem) {
	m.Items = append([]MangaListItem{item}, m.Items...)
	if len(m.Items) > 1 {
		m.SelectedIndex++
	}
}

// SetIcon attaches a rendered icon to every item showing the manga at url.
func (m *MangaList) SetIcon(url, icon string) bool {
	found := false
	for i := range m.Items {
		if m.Items[i].Manga.URL == url {
			m.Items[i].Icon = icon
			found = true
		}
	}
	return found
}

func (m *MangaList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex++
	if m.SelectedIndex >= len(m.Items) {
		m.SelectedIndex = 0
	}
}

func (m *MangaList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex--
	if m.SelectedIndex < 0 {
		m.SelectedIndex = len(m.Items) - 1
	}
}

func (m *MangaList) Selected() *MangaListItem {
	if len(m.Items) == 0 || m.SelectedIndex >= len(m.Items) {
		return nil
	}
	return &m.Items[m.SelectedIndex]
}

// visible returns the window of items that fits Height and contains the
// selection.
func (m *MangaList) visible() (int, int) {
	count := max(1, m.Height/cardLines)
	if count >= len(m.Items) {
		return 0, len(m.Items)
	}
	start := max(0, m.SelectedIndex-count/2)
	end := start + count
	if end > len(m.Items) {
		end = len(m.Items)
		start = end - count
	}
	return start, end
}

func (m *MangaList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render(m.Empty)
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	start, end := m.visible()
	cards := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := m.Items[i]
		cardStyle := styles.CardStyle
		if i == m.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		icon := item.Icon
		if icon == "" {
			icon = IconPlaceholder(m.Loading)
		}

		textWidth := max(10, m.Width-IconWidth-8)
		lines := []string{
			styles.TitleStyle.Render(Truncate(item.Manga.Title, textWidth)),
			styles.MutedStyle.Render(Truncate(item.Manga.URL, textWidth)),
		}
		if item.Detail != "" {
			lines = append(lines, "", styles.TextStyle.Render(Truncate(item.Detail, textWidth)))
		}
		text := lipgloss.JoinVertical(lipgloss.Left, lines...)

		body := lipgloss.JoinHorizontal(lipgloss.Top, icon, "  ", text)
		cards = append(cards, cardStyle.Width(max(20, m.Width-4)).Render(body))
	}

	return strings.Join(cards, "\n")
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
