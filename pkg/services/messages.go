package services

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mangetsu/pkg/data"
)

// DownloadChapterMsg asks the scheduler to queue a chapter.
type DownloadChapterMsg struct {
	Chapter data.Chapter
}

// StartDownloadMsg starts the head job if nothing is running.
type StartDownloadMsg struct{}

// PopQueueMsg removes the head job after it finished.
type PopQueueMsg struct{}

// UpdateDownloadProgressMsg carries the fraction written so far.
type UpdateDownloadProgressMsg struct {
	Chapter  data.Chapter
	Progress float64
}

// DownloadCompletedMsg reports a chapter written to Dir.
type DownloadCompletedMsg struct {
	Chapter data.Chapter
	Dir     string
}

// DownloadFailedMsg reports a job that stopped with an error.
type DownloadFailedMsg struct {
	Chapter data.Chapter
	Err     error
}

// DownloadChapters queues every chapter, in order.
func DownloadChapters(chapters ...data.Chapter) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(chapters))
	for _, chapter := range chapters {
		cmds = append(cmds, msgCmd(DownloadChapterMsg{Chapter: chapter}))
	}
	return tea.Sequence(cmds...)
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
