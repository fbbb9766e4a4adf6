package screens

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mangetsu/pkg/app/components"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/services"
)

var errNotDownloaded = errors.New("chapter is not downloaded yet")

// MangaScreen lists the chapters of one manga, oldest first, and queues
// them for download.
type MangaScreen struct {
	ctl   *services.Controller
	queue *services.DownloadQueue
	node  bridge.NodeID
	manga data.Manga

	chapters   []data.Chapter
	downloaded map[string]string
	selected   int

	chaptersReq   *bridge.Future[[]data.Chapter]
	downloadedReq *bridge.Future[map[string]string]
	iconReq       *bridge.Future[image.Image]
	exportReq     *bridge.Future[string]

	icon      string
	spinner   spinner.Model
	loading   bool
	exporting bool
	status    string
	err       error

	width  int
	height int
}

func NewMangaScreen(ctl *services.Controller, queue *services.DownloadQueue, manga data.Manga) *MangaScreen {
	return &MangaScreen{
		ctl:        ctl,
		queue:      queue,
		node:       bridge.NewNodeID(),
		manga:      manga,
		downloaded: map[string]string{},
		spinner:    spinner.New(spinner.WithSpinner(spinner.Line)),
	}
}

func (s *MangaScreen) Node() bridge.NodeID { return s.node }

func (s *MangaScreen) Manga() data.Manga { return s.manga }

func (s *MangaScreen) Init() tea.Cmd {
	s.loading = true
	manga := s.manga

	s.chaptersReq = bridge.NewFuture(s.ctl.Runtime, s.node,
		func(ctx context.Context) ([]data.Chapter, error) {
			return s.ctl.ListChapters(ctx, manga)
		},
		func(r bridge.Result[[]data.Chapter]) tea.Cmd {
			s.loading = false
			if r.Err != nil {
				s.ctl.Log.Error("failed to list chapters", "manga", manga.URL, "err", r.Err)
				s.err = r.Err
				return nil
			}
			s.SetChapters(r.Value)
			return nil
		},
	)
	cmds := []tea.Cmd{s.chaptersReq.Cmd(), s.spinner.Tick}

	if s.ctl.Library != nil {
		s.downloadedReq = bridge.NewFuture(s.ctl.Runtime, s.node,
			func(ctx context.Context) (map[string]string, error) {
				return s.ctl.Library.DownloadedChapters(manga.URL)
			},
			func(r bridge.Result[map[string]string]) tea.Cmd {
				if r.Err != nil {
					s.ctl.Log.Warn("failed to read library", "manga", manga.URL, "err", r.Err)
					return nil
				}
				for url, dir := range r.Value {
					s.downloaded[url] = dir
				}
				return nil
			},
		)
		cmds = append(cmds, s.downloadedReq.Cmd())
	}

	if manga.IconURL != "" {
		s.iconReq = bridge.NewFuture(s.ctl.Runtime, s.node,
			func(ctx context.Context) (image.Image, error) {
				return s.ctl.Images.Load(ctx, manga.IconURL, manga.URL)
			},
			func(r bridge.Result[image.Image]) tea.Cmd {
				if r.Err == nil {
					s.icon = components.RenderIcon(r.Value, components.IconWidth*2)
				}
				return nil
			},
		)
		cmds = append(cmds, s.iconReq.Cmd())
	}

	return tea.Batch(cmds...)
}

// SetChapters stores chapters in reading order. Connectors list the newest
// chapter first.
func (s *MangaScreen) SetChapters(chapters []data.Chapter) {
	s.chapters = slices.Clone(chapters)
	slices.Reverse(s.chapters)
	if s.selected >= len(s.chapters) {
		s.selected = max(0, len(s.chapters)-1)
	}
}

func (s *MangaScreen) Selected() (data.Chapter, bool) {
	if len(s.chapters) == 0 {
		return data.Chapter{}, false
	}
	return s.chapters[s.selected], true
}

func (s *MangaScreen) export(task func() (string, error)) tea.Cmd {
	if s.exporting {
		return nil
	}
	s.exporting = true
	s.status = ""
	s.err = nil
	s.exportReq = bridge.NewFuture(s.ctl.Runtime, s.node,
		func(ctx context.Context) (string, error) {
			return task()
		},
		func(r bridge.Result[string]) tea.Cmd {
			s.exporting = false
			if r.Err != nil {
				s.ctl.Log.Error("export failed", "manga", s.manga.URL, "err", r.Err)
				s.err = r.Err
				return nil
			}
			s.ctl.Log.Info("exported book", "path", r.Value)
			s.status = "Saved " + r.Value
			return nil
		},
	)
	return tea.Batch(s.exportReq.Cmd(), s.spinner.Tick)
}

func (s *MangaScreen) handleResponse(msg tea.Msg) (tea.Cmd, bool) {
	if s.chaptersReq != nil {
		if cmd, ok := s.chaptersReq.Handle(msg); ok {
			return cmd, true
		}
	}
	if s.downloadedReq != nil {
		if cmd, ok := s.downloadedReq.Handle(msg); ok {
			return cmd, true
		}
	}
	if s.iconReq != nil {
		if cmd, ok := s.iconReq.Handle(msg); ok {
			return cmd, true
		}
	}
	if s.exportReq != nil {
		if cmd, ok := s.exportReq.Handle(msg); ok {
			return cmd, true
		}
	}
	return nil, false
}

func (s *MangaScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := s.handleResponse(msg); ok {
		return s, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case spinner.TickMsg:
		if !s.loading && !s.exporting {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case services.DownloadCompletedMsg:
		if msg.Chapter.Manga.Equal(s.manga) {
			s.downloaded[msg.Chapter.URL] = msg.Dir
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.chapters)-1 {
				s.selected++
			}
		case "home", "g":
			s.selected = 0
		case "end", "G":
			s.selected = max(0, len(s.chapters)-1)
		case "enter", "d":
			if chapter, ok := s.Selected(); ok {
				return s, services.DownloadChapters(chapter)
			}
		case "a":
			return s, services.DownloadChapters(s.chapters...)
		case "e":
			chapter, ok := s.Selected()
			if !ok {
				return s, nil
			}
			dir, ok := s.downloaded[chapter.URL]
			if !ok {
				s.err = errNotDownloaded
				return s, nil
			}
			return s, s.export(func() (string, error) { return s.ctl.Exporter.ExportChapter(dir) })
		case "E":
			dir := s.ctl.Downloader.MangaDir(s.manga)
			return s, s.export(func() (string, error) { return s.ctl.Exporter.ExportManga(dir) })
		case "esc", "backspace":
			return s, Navigate(Route{Kind: Home})
		}
	}

	return s, nil
}

// chapterState is the label shown next to chapter.
func (s *MangaScreen) chapterState(chapter data.Chapter) string {
	if state := components.JobState(s.queue, chapter); state != "" {
		return state
	}
	if _, ok := s.downloaded[chapter.URL]; ok {
		return styles.StateDownloaded
	}
	return ""
}

func (s *MangaScreen) View() string {
	header := styles.TitleStyle.Render(s.manga.Title)
	source := styles.MutedStyle.Render(fmt.Sprintf("%s • %s", connectorLabel(s.ctl.Registry, s.manga.Connector), s.manga.URL))

	var status string
	switch {
	case s.err != nil:
		status = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
	case s.exporting:
		status = styles.StatusDownloading.Render(s.spinner.View() + " Exporting...")
	case s.status != "":
		status = styles.StatusCompleted.Render(s.status)
	}

	icon := s.icon
	if icon == "" {
		icon = components.IconPlaceholder(s.spinner.View())
	}

	var chapters string
	if s.loading {
		chapters = styles.StatusDownloading.Render(s.spinner.View() + " Loading chapters...")
	} else {
		chapters = s.renderChapters()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, icon, "   ", chapters)

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter/d: download • a: download all • e: chapter epub • E: manga epub • esc: back",
	)

	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n%s", header, source, status, body, help)
}

func (s *MangaScreen) renderChapters() string {
	if len(s.chapters) == 0 {
		return styles.MutedStyle.Render("No chapters")
	}

	rows := max(5, s.height-12)
	start := 0
	if s.selected >= rows {
		start = s.selected - rows + 1
	}
	end := min(len(s.chapters), start+rows)
	titleWidth := max(20, s.width-components.IconWidth*2-30)

	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("%d chapters", len(s.chapters))))
	b.WriteString("\n")
	for i := start; i < end; i++ {
		chapter := s.chapters[i]
		title := components.Truncate(chapter.Title, titleWidth)
		if i == s.selected {
			b.WriteString(styles.SelectedStyle.Render("> " + title))
		} else {
			b.WriteString(styles.TextStyle.Render("  " + title))
		}

		state := s.chapterState(chapter)
		if state == styles.StateDownloading {
			for _, job := range s.queue.Jobs(s.manga) {
				if job.Chapter.Equal(chapter) {
					state = fmt.Sprintf("%s %3.0f%%", state, job.Progress*100)
				}
			}
		}
		if state != "" {
			b.WriteString("  ")
			b.WriteString(styles.StatusStyle(s.chapterState(chapter)).Render(state))
		}
		b.WriteString("\n")
	}
	return b.String()
}
