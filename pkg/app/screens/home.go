package screens

import (
	"context"
	"fmt"
	"image"
	"iter"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/app/components"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/services"
)

// HomeScreen shows the first catalog page of every connector, newest entry
// on top, and a URL box to open any manga directly.
type HomeScreen struct {
	ctl  *services.Controller
	node bridge.NodeID

	input   textinput.Model
	list    *components.MangaList
	spinner spinner.Model

	catalog *bridge.Stream[data.Manga]
	icons   *iconRequests
	loading bool
	err     error

	width  int
	height int
}

func NewHomeScreen(ctl *services.Controller) *HomeScreen {
	ti := textinput.New()
	ti.Placeholder = "Paste a manga URL..."
	ti.CharLimit = 512
	ti.Width = 60

	s := &HomeScreen{
		ctl:     ctl,
		node:    bridge.NewNodeID(),
		input:   ti,
		list:    components.NewMangaList("The catalog is empty"),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	s.icons = newIconRequests(ctl, s.node, s.list)
	return s
}

func (s *HomeScreen) Node() bridge.NodeID { return s.node }

// InputFocused reports whether keys are going to the URL box.
func (s *HomeScreen) InputFocused() bool { return s.input.Focused() }

// SetError shows err above the catalog; nil clears it.
func (s *HomeScreen) SetError(err error) { s.err = err }

func (s *HomeScreen) Init() tea.Cmd {
	s.loading = true
	s.catalog = bridge.NewStream(s.ctl.Runtime, s.node,
		func(ctx context.Context) iter.Seq2[data.Manga, error] {
			return s.ctl.Catalog(ctx, 1)
		},
		s.addManga,
		func(err error) tea.Cmd {
			s.loading = false
			if err != nil {
				s.ctl.Log.Error("catalog stream failed", "err", err)
				s.err = err
			}
			return nil
		},
	)
	return tea.Batch(s.catalog.Cmd(), s.spinner.Tick)
}

func (s *HomeScreen) addManga(manga data.Manga) tea.Cmd {
	s.ctl.Remember(manga)
	s.list.Prepend(components.MangaListItem{Manga: manga})
	return s.icons.load(manga)
}

func (s *HomeScreen) busy() bool {
	return s.loading || s.icons.busy()
}

func (s *HomeScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.Width = msg.Width
		s.list.Height = max(components.IconRows+2, msg.Height-12)
		return s, nil

	case spinner.TickMsg:
		if !s.busy() {
			return s, nil
		}
		s.spinner, cmd = s.spinner.Update(msg)
		s.list.Loading = s.spinner.View()
		return s, cmd

	case bridge.Response[image.Image]:
		cmd, _ = s.icons.handle(msg)
		return s, cmd

	case bridge.StreamItem[data.Manga], bridge.StreamEnd:
		if s.catalog != nil {
			cmd, _ = s.catalog.Handle(msg)
		}
		return s, cmd

	case tea.KeyMsg:
		if s.input.Focused() {
			switch msg.String() {
			case "enter":
				url := strings.TrimSpace(s.input.Value())
				if url == "" {
					return s, nil
				}
				s.err = nil
				s.input.Blur()
				return s, func() tea.Msg { return FetchMangaDetailMsg{URL: url} }
			case "esc":
				s.input.Blur()
				return s, nil
			}
			s.input, cmd = s.input.Update(msg)
			return s, cmd
		}

		switch msg.String() {
		case "/", "i":
			s.input.Focus()
			return s, textinput.Blink
		case "up", "k":
			s.list.Prev()
		case "down", "j":
			s.list.Next()
		case "enter":
			if item := s.list.Selected(); item != nil {
				return s, Navigate(MangaRoute(item.Manga))
			}
		}
	}

	if s.input.Focused() {
		s.input, cmd = s.input.Update(msg)
	}
	return s, cmd
}

func (s *HomeScreen) View() string {
	header := styles.TitleStyle.Render("Catalog")

	inputStyle := styles.InputStyle
	if s.input.Focused() {
		inputStyle = styles.FocusedInputStyle
	}
	inputView := inputStyle.Render(s.input.View())

	var status string
	switch {
	case s.err != nil:
		status = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
	case s.loading:
		status = styles.StatusDownloading.Render(s.spinner.View() + " Loading catalog...")
	default:
		status = styles.MutedStyle.Render(fmt.Sprintf("%d mangas", len(s.list.Items)))
	}

	help := styles.HelpStyle.Render(
		"/: open url • enter: open • ↑/k ↓/j: navigate • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s\n%s", header, inputView, status, s.list.View(), help)
}
