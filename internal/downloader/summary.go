package downloader

// Failure identifies one attachment that reached a failed outcome.
type Failure struct {
	PostID   string
	Filename string
	URL      string
	Err      error
}

// Summary aggregates a batch's outcomes. TotalBytes counts succeeded
// downloads only; failed tasks contribute zero bytes but always show
// up in Submitted - Succeeded and in Failures.
type Summary struct {
	Submitted  int
	Succeeded  int
	TotalBytes int64
	Failures   []Failure
}

// Summarize folds task outcomes into a Summary. Pure function, no I/O.
func Summarize(tasks []Task) Summary {
	s := Summary{Submitted: len(tasks)}
	for _, task := range tasks {
		if task.Succeeded() {
			s.Succeeded++
			s.TotalBytes += task.Bytes
			continue
		}
		s.Failures = append(s.Failures, Failure{
			PostID:   task.PostID,
			Filename: task.Attachment.Filename,
			URL:      task.Attachment.URL(),
			Err:      task.Err,
		})
	}
	return s
}
