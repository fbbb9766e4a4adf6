package screens

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangetsu/pkg/app/components"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/services"
)

// chromeLines is the height taken by the tab bar above every screen.
const chromeLines = 3

// RootScreen owns navigation and the download scheduler, and dispatches
// bridge responses to the screen that asked for them.
type RootScreen struct {
	ctl       *services.Controller
	router    *bridge.Router
	scheduler *services.Scheduler
	node      bridge.NodeID

	route     Route
	home      *HomeScreen
	library   *LibraryScreen
	downloads *DownloadsScreen
	manga     *MangaScreen

	fetch *bridge.Future[data.Manga]

	width  int
	height int
}

func NewRootScreen(ctl *services.Controller) *RootScreen {
	scheduler := services.NewScheduler(ctl.Runtime, ctl.Downloader, ctl.Log)
	r := &RootScreen{
		ctl:       ctl,
		router:    bridge.NewRouter(),
		scheduler: scheduler,
		node:      bridge.NewNodeID(),
		route:     Route{Kind: Home},
		home:      NewHomeScreen(ctl),
		library:   NewLibraryScreen(ctl),
		downloads: NewDownloadsScreen(scheduler.Queue()),
	}
	for _, id := range []bridge.NodeID{r.node, scheduler.Node(), r.home.Node(), r.library.Node()} {
		r.router.Mount(id)
	}
	return r
}

func (r *RootScreen) Route() Route { return r.route }

func (r *RootScreen) Scheduler() *services.Scheduler { return r.scheduler }

func (r *RootScreen) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(WindowTitle(r.route, r.ctl.Registry)),
		r.home.Init(),
	)
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !r.router.Accept(msg) {
		r.ctl.Log.Debug("dropping message for unmounted node", "type", fmt.Sprintf("%T", msg))
		return r, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		child := r.childSize()
		r.home.Update(child)
		r.library.Update(child)
		r.downloads.Update(child)
		if r.manga != nil {
			r.manga.Update(child)
		}
		return r, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return r, tea.Quit
		case "q":
			if !r.inputFocused() {
				return r, tea.Quit
			}
		case "tab":
			if !r.inputFocused() {
				return r, r.navigate(Route{Kind: r.nextTab()})
			}
		}

	case NavigateMsg:
		return r, r.navigate(msg.Route)

	case FetchMangaDetailMsg:
		return r, r.fetchDetail(msg.URL)

	case services.DownloadChapterMsg, services.StartDownloadMsg, services.PopQueueMsg,
		services.UpdateDownloadProgressMsg, services.DownloadFailedMsg:
		return r, r.scheduler.Update(msg)

	case services.DownloadCompletedMsg:
		cmds := []tea.Cmd{r.scheduler.Update(msg)}
		_, cmd := r.library.Update(msg)
		cmds = append(cmds, cmd)
		if r.manga != nil {
			_, cmd = r.manga.Update(msg)
			cmds = append(cmds, cmd)
		}
		return r, tea.Batch(cmds...)

	case spinner.TickMsg:
		_, homeCmd := r.home.Update(msg)
		var mangaCmd tea.Cmd
		if r.manga != nil {
			_, mangaCmd = r.manga.Update(msg)
		}
		return r, tea.Batch(homeCmd, mangaCmd)

	case bridge.Addressed:
		return r, r.deliver(msg)
	}

	return r, r.forward(msg)
}

func (r *RootScreen) childSize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: r.width, Height: max(0, r.height-chromeLines)}
}

func (r *RootScreen) inputFocused() bool {
	return r.route.Kind == Home && r.home.InputFocused()
}

func (r *RootScreen) nextTab() RouteKind {
	next := 0
	for i, kind := range tabs {
		if kind == r.route.Kind {
			next = (i + 1) % len(tabs)
		}
	}
	return tabs[next]
}

// deliver hands an addressed message to the node it belongs to.
func (r *RootScreen) deliver(msg bridge.Addressed) tea.Cmd {
	var cmd tea.Cmd
	switch target := msg.Target(); {
	case target == r.node:
		if r.fetch != nil {
			cmd, _ = r.fetch.Handle(msg)
		}
	case target == r.scheduler.Node():
		cmd = r.scheduler.Update(msg)
	case target == r.home.Node():
		_, cmd = r.home.Update(msg)
	case target == r.library.Node():
		_, cmd = r.library.Update(msg)
	case r.manga != nil && target == r.manga.Node():
		_, cmd = r.manga.Update(msg)
	}
	return cmd
}

// forward passes input to the screen on display.
func (r *RootScreen) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch r.route.Kind {
	case Home:
		_, cmd = r.home.Update(msg)
	case Library:
		_, cmd = r.library.Update(msg)
	case Downloads:
		_, cmd = r.downloads.Update(msg)
	case MangaPage:
		if r.manga != nil {
			_, cmd = r.manga.Update(msg)
		}
	}
	return cmd
}

func (r *RootScreen) navigate(route Route) tea.Cmd {
	if route.Equal(r.route) {
		return nil
	}
	if r.manga != nil {
		r.router.Unmount(r.manga.Node())
		r.manga = nil
	}
	r.route = route
	r.ctl.Log.Debug("navigate", "route", route.FullTitle(r.ctl.Registry))

	var cmd tea.Cmd
	switch route.Kind {
	case Library:
		cmd = r.library.Init()
	case MangaPage:
		r.ctl.Remember(route.Manga)
		r.manga = NewMangaScreen(r.ctl, r.scheduler.Queue(), route.Manga)
		r.router.Mount(r.manga.Node())
		r.manga.Update(r.childSize())
		cmd = r.manga.Init()
	}
	return tea.Batch(tea.SetWindowTitle(WindowTitle(route, r.ctl.Registry)), cmd)
}

func (r *RootScreen) fetchDetail(url string) tea.Cmd {
	if _, ok := r.ctl.Registry.Resolve(url); !ok {
		r.home.SetError(fmt.Errorf("no connector can handle %s", url))
		return nil
	}
	r.home.SetError(nil)
	r.fetch = bridge.NewFuture(r.ctl.Runtime, r.node,
		func(ctx context.Context) (data.Manga, error) {
			return r.ctl.FetchMangaDetail(ctx, url)
		},
		func(res bridge.Result[data.Manga]) tea.Cmd {
			if res.Err != nil {
				r.ctl.Log.Warn("failed to open manga", "url", url, "err", res.Err)
				r.home.SetError(res.Err)
				return nil
			}
			return Navigate(MangaRoute(res.Value))
		},
	)
	return r.fetch.Cmd()
}

func (r *RootScreen) View() string {
	var content string
	switch r.route.Kind {
	case Home:
		content = r.home.View()
	case Library:
		content = r.library.View()
	case Downloads:
		content = r.downloads.View()
	case MangaPage:
		if r.manga != nil {
			content = r.manga.View()
		}
	}
	return fmt.Sprintf("%s\n\n%s", r.renderTabs(), content)
}

func (r *RootScreen) renderTabs() string {
	rendered := make([]string, 0, len(tabs)+2)
	for _, kind := range tabs {
		title := Route{Kind: kind}.Title()
		if kind == r.route.Kind {
			rendered = append(rendered, styles.ActiveTabStyle.Render(title))
		} else {
			rendered = append(rendered, styles.InactiveTabStyle.Render(title))
		}
	}
	if r.route.Kind == MangaPage {
		rendered = append(rendered, styles.ActiveTabStyle.Render(components.Truncate(r.route.Title(), 30)))
	}
	if n := r.scheduler.Queue().Len(); n > 0 {
		rendered = append(rendered, styles.StatusDownloading.Render(fmt.Sprintf("  %d queued", n)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
