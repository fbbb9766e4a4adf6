package screens

import (
	"context"
	"errors"
	"fmt"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/app/components"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/services"
)

var errNoLibrary = errors.New("library database is unavailable")

// LibraryScreen lists the mangas that have at least one downloaded chapter.
type LibraryScreen struct {
	ctl       *services.Controller
	node      bridge.NodeID
	mangaList *components.MangaList
	icons     *iconRequests

	listReq   *bridge.Future[[]components.MangaListItem]
	exportReq *bridge.Future[string]
	status    string
	err       error

	width  int
	height int
}

func NewLibraryScreen(ctl *services.Controller) *LibraryScreen {
	s := &LibraryScreen{
		ctl:       ctl,
		node:      bridge.NewNodeID(),
		mangaList: components.NewMangaList("No manga in library"),
	}
	s.icons = newIconRequests(ctl, s.node, s.mangaList)
	return s
}

func (s *LibraryScreen) Node() bridge.NodeID { return s.node }

// Init reloads the library. It runs every time the screen is shown.
func (s *LibraryScreen) Init() tea.Cmd {
	if s.ctl.Library == nil {
		s.err = errNoLibrary
		return nil
	}
	s.listReq = bridge.NewFuture(s.ctl.Runtime, s.node, s.loadLibrary,
		func(r bridge.Result[[]components.MangaListItem]) tea.Cmd {
			if r.Err != nil {
				s.ctl.Log.Error("failed to load library", "err", r.Err)
				s.err = r.Err
				return nil
			}
			s.err = nil
			s.mangaList.SetItems(r.Value)
			cmds := make([]tea.Cmd, 0, len(r.Value))
			for _, item := range r.Value {
				cmds = append(cmds, s.icons.load(item.Manga))
			}
			return tea.Batch(cmds...)
		},
	)
	return s.listReq.Cmd()
}

func (s *LibraryScreen) loadLibrary(ctx context.Context) ([]components.MangaListItem, error) {
	mangas, err := s.ctl.Library.ListMangas()
	if err != nil {
		return nil, err
	}

	items := make([]components.MangaListItem, 0, len(mangas))
	for _, manga := range mangas {
		downloaded, err := s.ctl.Library.DownloadedChapters(manga.URL)
		if err != nil {
			return nil, err
		}
		items = append(items, components.MangaListItem{
			Manga:  manga,
			Detail: fmt.Sprintf("%d chapters downloaded", len(downloaded)),
		})
	}
	return items, nil
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := s.icons.handle(msg); ok {
		return s, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.mangaList.Width = msg.Width - 4
		s.mangaList.Height = max(components.IconRows+2, msg.Height-10)

	case bridge.Response[[]components.MangaListItem]:
		if s.listReq != nil {
			cmd, _ := s.listReq.Handle(msg)
			return s, cmd
		}

	case bridge.Response[image.Image]:
		return s, nil

	case bridge.Response[string]:
		if s.exportReq != nil {
			cmd, _ := s.exportReq.Handle(msg)
			return s, cmd
		}

	case services.DownloadCompletedMsg:
		return s, s.Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.mangaList.Prev()
		case "down", "j":
			s.mangaList.Next()
		case "r":
			return s, s.Init()
		case "e":
			if selected := s.mangaList.Selected(); selected != nil {
				return s, s.exportManga(selected.Manga.Title, s.ctl.Downloader.MangaDir(selected.Manga))
			}
		case "enter":
			if selected := s.mangaList.Selected(); selected != nil {
				return s, Navigate(MangaRoute(selected.Manga))
			}
		}
	}

	return s, nil
}

func (s *LibraryScreen) exportManga(title, dir string) tea.Cmd {
	s.status = "Exporting " + title + "..."
	s.exportReq = bridge.NewFuture(s.ctl.Runtime, s.node,
		func(ctx context.Context) (string, error) {
			return s.ctl.Exporter.ExportManga(dir)
		},
		func(r bridge.Result[string]) tea.Cmd {
			if r.Err != nil {
				s.status = ""
				s.err = r.Err
				return nil
			}
			s.status = "Saved " + r.Value
			return nil
		},
	)
	return s.exportReq.Cmd()
}

func (s *LibraryScreen) View() string {
	header := styles.TitleStyle.Render("Library")

	var statusMsg string
	if s.err != nil {
		statusMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)) + "\n\n"
	} else if s.status != "" {
		statusMsg = styles.StatusCompleted.Render(s.status) + "\n\n"
	}

	help := styles.HelpStyle.Render(
		"↑/k: up • ↓/j: down • enter: details • e: export EPUB • r: refresh • tab: switch view • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, statusMsg, s.mangaList.View(), help)
}
