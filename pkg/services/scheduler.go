package services

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

// ChapterDownloader is the part of Downloader the scheduler needs.
type ChapterDownloader interface {
	Download(ctx context.Context, chapter data.Chapter, progress ProgressFunc) (string, error)
}

// Scheduler runs queued downloads one at a time. Update must only be called
// from the UI loop.
type Scheduler struct {
	queue      *DownloadQueue
	runtime    *bridge.Runtime
	node       bridge.NodeID
	downloader ChapterDownloader
	log        *log.Logger

	current *bridge.Future[string]
}

func NewScheduler(rt *bridge.Runtime, downloader ChapterDownloader, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	return &Scheduler{
		queue:      NewDownloadQueue(),
		runtime:    rt,
		node:       bridge.NewNodeID(),
		downloader: downloader,
		log:        logger.WithPrefix("scheduler"),
	}
}

// Node is the bridge address of the scheduler. It must stay mounted for
// download completions to arrive.
func (s *Scheduler) Node() bridge.NodeID { return s.node }

func (s *Scheduler) Queue() *DownloadQueue { return s.queue }

func (s *Scheduler) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case DownloadChapterMsg:
		if !s.queue.Enqueue(msg.Chapter) {
			s.log.Debug("chapter already queued", "chapter", msg.Chapter.URL)
			return nil
		}
		s.log.Info("queued chapter", "manga", msg.Chapter.Manga.Title, "chapter", msg.Chapter.Title)
		if s.queue.Active() {
			return nil
		}
		return msgCmd(StartDownloadMsg{})

	case StartDownloadMsg:
		return s.start()

	case PopQueueMsg:
		if job, ok := s.queue.Pop(); ok {
			s.log.Debug("popped job", "chapter", job.Chapter.URL)
		}
		return nil

	case DownloadCompletedMsg:
		s.log.Info("download finished", "chapter", msg.Chapter.Title, "dir", msg.Dir)
		return nil

	case DownloadFailedMsg:
		s.log.Error("download failed", "chapter", msg.Chapter.URL, "err", msg.Err)
		s.queue.Fail(msg.Chapter, msg.Err)
		return msgCmd(StartDownloadMsg{})

	case UpdateDownloadProgressMsg:
		s.queue.UpdateProgress(msg.Chapter, msg.Progress)
		return nil
	}

	if s.current != nil {
		if cmd, ok := s.current.Handle(msg); ok {
			return cmd
		}
	}
	return nil
}

func (s *Scheduler) start() tea.Cmd {
	job, ok := s.queue.Activate()
	if !ok {
		return nil
	}
	chapter := job.Chapter
	s.log.Debug("starting download", "chapter", chapter.URL)

	s.current = bridge.NewFuture(s.runtime, s.node,
		func(ctx context.Context) (string, error) {
			return s.downloader.Download(ctx, chapter, func(c data.Chapter, p float64) {
				s.runtime.Send(UpdateDownloadProgressMsg{Chapter: c, Progress: p})
			})
		},
		func(r bridge.Result[string]) tea.Cmd {
			if r.Err != nil {
				return msgCmd(DownloadFailedMsg{Chapter: chapter, Err: r.Err})
			}
			return tea.Sequence(
				msgCmd(DownloadCompletedMsg{Chapter: chapter, Dir: r.Value}),
				msgCmd(PopQueueMsg{}),
				msgCmd(StartDownloadMsg{}),
			)
		},
	)
	return s.current.Cmd()
}
