package screens

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/app/components"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/services"
)

// DownloadsScreen shows the scheduler's queue. It owns no state of its own;
// the queue is read on every render.
type DownloadsScreen struct {
	queue   *services.DownloadQueue
	tracker *components.ProgressTracker
}

func NewDownloadsScreen(queue *services.DownloadQueue) *DownloadsScreen {
	return &DownloadsScreen{
		queue:   queue,
		tracker: components.NewProgressTracker(80),
	}
}

func (s *DownloadsScreen) Init() tea.Cmd {
	return nil
}

func (s *DownloadsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.tracker.SetWidth(msg.Width - 4)
	case tea.KeyMsg:
		if msg.String() == "x" {
			s.queue.ClearFailed()
		}
	}
	return s, nil
}

func (s *DownloadsScreen) View() string {
	help := styles.HelpStyle.Render("x: clear failed • tab: switch view • q: quit")
	return fmt.Sprintf("%s\n%s", s.tracker.View(s.queue), help)
}
