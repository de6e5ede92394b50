package downloader

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/NovaHFly/kemono-su-downloader/internal/models"
)

// DefaultConcurrency is the worker pool width used when a caller
// passes a non-positive value.
const DefaultConcurrency = 5

// Fetcher downloads one attachment, returning the local path and byte
// count on success.
type Fetcher interface {
	Fetch(att models.Attachment) (string, int64, error)
}

// Task is one attachment plus its terminal outcome.
type Task struct {
	Attachment models.Attachment
	PostID     string

	LocalPath string
	Bytes     int64
	Err       error
}

// Succeeded reports whether the task reached a successful outcome.
func (t Task) Succeeded() bool {
	return t.Err == nil
}

// Flatten builds the task list for a batch of posts: each post's
// pictures then file attachments, post order preserved. This is the
// submission order outcomes are reported in.
func Flatten(posts []*models.Post) []Task {
	var tasks []Task
	for _, post := range posts {
		for _, att := range post.Attachments() {
			tasks = append(tasks, Task{Attachment: att, PostID: post.ID})
		}
	}
	return tasks
}

// DownloadAll runs every attachment of every post through fetcher on
// a bounded worker pool. One task's failure never cancels or blocks
// siblings. The call returns once every task is terminal, with
// outcomes in submission order regardless of completion order.
func DownloadAll(posts []*models.Post, fetcher Fetcher, concurrency int) []Task {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	tasks := Flatten(posts)
	if len(tasks) == 0 {
		return tasks
	}

	jobs := make(chan int, len(tasks))
	var wg sync.WaitGroup

	log.Infof("Starting %d download workers for %d attachments...", concurrency, len(tasks))
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				runTask(&tasks[idx], fetcher)
			}
		}()
	}

	for i := range tasks {
		log.WithFields(log.Fields{
			"post": tasks[i].PostID,
			"file": tasks[i].Attachment.Filename,
			"url":  tasks[i].Attachment.URL(),
		}).Info("Submitted download")
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return tasks
}

// runTask executes one download and records its outcome in place.
// Workers never propagate errors; failures stay isolated per task.
func runTask(task *Task, fetcher Fetcher) {
	localPath, size, err := fetcher.Fetch(task.Attachment)
	if err != nil {
		task.Err = err
		log.WithError(err).WithFields(log.Fields{
			"post": task.PostID,
			"file": task.Attachment.Filename,
			"url":  task.Attachment.URL(),
		}).Error("Download failed")
		return
	}

	task.LocalPath = localPath
	task.Bytes = size
	log.WithFields(log.Fields{
		"post":  task.PostID,
		"file":  task.Attachment.Filename,
		"path":  localPath,
		"bytes": size,
	}).Info("Download succeeded")
}
