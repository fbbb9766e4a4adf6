package services

import (
	"github.com/kerbaras/mangetsu/pkg/data"
)

// DownloadJob is one chapter waiting for, or going through, a download.
type DownloadJob struct {
	Chapter  data.Chapter
	Progress float64
	Err      error
}

// DownloadQueue keeps one FIFO of jobs per manga. Mangas are served in the
// order their queue was created; only the head of the first queue may be
// active. It is owned by the UI loop and not safe for concurrent use.
type DownloadQueue struct {
	order  []string
	mangas map[string]data.Manga
	jobs   map[string][]DownloadJob
	active string
	failed []DownloadJob
}

func NewDownloadQueue() *DownloadQueue {
	return &DownloadQueue{
		mangas: make(map[string]data.Manga),
		jobs:   make(map[string][]DownloadJob),
	}
}

// Enqueue appends chapter to its manga's queue. A chapter that is already
// queued is ignored and false is returned.
func (q *DownloadQueue) Enqueue(chapter data.Chapter) bool {
	if q.Contains(chapter) {
		return false
	}
	key := chapter.Manga.Key()
	if _, ok := q.jobs[key]; !ok {
		q.order = append(q.order, key)
		q.mangas[key] = chapter.Manga
	}
	q.jobs[key] = append(q.jobs[key], DownloadJob{Chapter: chapter})
	return true
}

func (q *DownloadQueue) Contains(chapter data.Chapter) bool {
	for _, job := range q.jobs[chapter.Manga.Key()] {
		if job.Chapter.Equal(chapter) {
			return true
		}
	}
	return false
}

// Head returns the first job of the first manga queue.
func (q *DownloadQueue) Head() (DownloadJob, bool) {
	if len(q.order) == 0 {
		return DownloadJob{}, false
	}
	return q.jobs[q.order[0]][0], true
}

// Pop removes the head job. The manga's queue goes away with its last job.
func (q *DownloadQueue) Pop() (DownloadJob, bool) {
	if len(q.order) == 0 {
		return DownloadJob{}, false
	}
	key := q.order[0]
	jobs := q.jobs[key]
	head := jobs[0]

	if len(jobs) == 1 {
		delete(q.jobs, key)
		delete(q.mangas, key)
		q.order = q.order[1:]
	} else {
		q.jobs[key] = jobs[1:]
	}
	if q.active == head.Chapter.Key() {
		q.active = ""
	}
	return head, true
}

// Fail pops the head if it is chapter and records it as failed.
func (q *DownloadQueue) Fail(chapter data.Chapter, err error) bool {
	head, ok := q.Head()
	if !ok || !head.Chapter.Equal(chapter) {
		return false
	}
	q.Pop()
	head.Err = err
	q.failed = append(q.failed, head)
	return true
}

// UpdateProgress replaces the progress of chapter's job. Unknown chapters are
// ignored.
func (q *DownloadQueue) UpdateProgress(chapter data.Chapter, progress float64) bool {
	jobs := q.jobs[chapter.Manga.Key()]
	for i := range jobs {
		if jobs[i].Chapter.Equal(chapter) {
			jobs[i].Progress = progress
			return true
		}
	}
	return false
}

// Activate marks the head job as running. It fails when a job is already
// active or the queue is empty.
func (q *DownloadQueue) Activate() (DownloadJob, bool) {
	if q.active != "" {
		return DownloadJob{}, false
	}
	head, ok := q.Head()
	if !ok {
		return DownloadJob{}, false
	}
	q.active = head.Chapter.Key()
	return head, true
}

func (q *DownloadQueue) Active() bool {
	return q.active != ""
}

func (q *DownloadQueue) IsActive(chapter data.Chapter) bool {
	return q.active != "" && q.active == chapter.Key()
}

// Mangas lists the mangas with queued jobs in service order.
func (q *DownloadQueue) Mangas() []data.Manga {
	out := make([]data.Manga, 0, len(q.order))
	for _, key := range q.order {
		out = append(out, q.mangas[key])
	}
	return out
}

func (q *DownloadQueue) Jobs(manga data.Manga) []DownloadJob {
	jobs := q.jobs[manga.Key()]
	out := make([]DownloadJob, len(jobs))
	copy(out, jobs)
	return out
}

func (q *DownloadQueue) Len() int {
	n := 0
	for _, jobs := range q.jobs {
		n += len(jobs)
	}
	return n
}

func (q *DownloadQueue) Failed() []DownloadJob {
	out := make([]DownloadJob, len(q.failed))
	copy(out, q.failed)
	return out
}

func (q *DownloadQueue) ClearFailed() {
	q.failed = nil
}
