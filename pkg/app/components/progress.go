package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/kerbaras/mangetsu/pkg/app/styles"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/services"
)

// ProgressTracker renders the download queue grouped by manga, one bar per
// job.
type ProgressTracker struct {
	bar   progress.Model
	width int
}

func NewProgressTracker(width int) *ProgressTracker {
	p := &ProgressTracker{
		bar: progress.New(progress.WithDefaultGradient()),
	}
	p.SetWidth(width)
	return p
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
	p.bar.Width = max(10, width-40)
}

// JobState is the label of chapter in queue: downloading for the active job,
// queued for the rest and empty when chapter is not queued.
func JobState(queue *services.DownloadQueue, chapter data.Chapter) string {
	switch {
	case queue.IsActive(chapter):
		return styles.StateDownloading
	case queue.Contains(chapter):
		return styles.StateQueued
	default:
		return ""
	}
}

func (p *ProgressTracker) View(queue *services.DownloadQueue) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Downloads (%d)", queue.Len())))
	b.WriteString("\n\n")

	mangas := queue.Mangas()
	if len(mangas) == 0 {
		b.WriteString(styles.MutedStyle.Render("Nothing queued"))
		b.WriteString("\n")
	}

	for _, manga := range mangas {
		b.WriteString(styles.SubtitleStyle.Render(Truncate(manga.Title, 30)))
		b.WriteString("\n")
		for _, job := range queue.Jobs(manga) {
			state := JobState(queue, job.Chapter)
			label := fmt.Sprintf("  %-28s ", Truncate(job.Chapter.Title, 28))
			b.WriteString(styles.TextStyle.Render(label))
			b.WriteString(p.bar.ViewAs(job.Progress))
			b.WriteString(" ")
			b.WriteString(styles.StatusStyle(state).Render(state))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if failed := queue.Failed(); len(failed) > 0 {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Failed (%d)", len(failed))))
		b.WriteString("\n")
		for _, job := range failed {
			line := fmt.Sprintf("  %s - %s: %v", job.Chapter.Manga.Title, job.Chapter.Title, job.Err)
			b.WriteString(styles.MutedStyle.Render(Truncate(line, max(20, p.width-2))))
			b.WriteString("\n")
		}
	}

	return b.String()
}
