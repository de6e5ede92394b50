package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NovaHFly/kemono-su-downloader/internal/api"
	"github.com/NovaHFly/kemono-su-downloader/internal/config"
	"github.com/NovaHFly/kemono-su-downloader/internal/database"
	"github.com/NovaHFly/kemono-su-downloader/internal/downloader"
	"github.com/NovaHFly/kemono-su-downloader/internal/helpers"
	"github.com/NovaHFly/kemono-su-downloader/internal/models"
	"github.com/NovaHFly/kemono-su-downloader/internal/resolver"
)

var (
	downloadsRootFlag string
	concurrencyFlag   int
	maxAttemptsFlag   int
	historyDBFlag     string
	logApiFlag        bool
)

var downloadCmd = &cobra.Command{
	Use:   "download URL...",
	Short: "Download all attachments of the given kemono.su posts",
	Long: `Download resolves each post URL into its metadata and downloads all
preview pictures and file attachments to the downloads root, one folder
per post named "[creator] title (id)".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&downloadsRootFlag, "downloads-root", "", "Root directory for downloaded posts")
	downloadCmd.Flags().IntVarP(&concurrencyFlag, "concurrency", "c", 0, "Number of parallel download workers")
	downloadCmd.Flags().IntVar(&maxAttemptsFlag, "max-attempts", 0, "Attempt ceiling for each fetch and download")
	downloadCmd.Flags().StringVar(&historyDBFlag, "history-db", "", "Path to the download history database (empty disables it)")
	downloadCmd.Flags().BoolVar(&logApiFlag, "log-api", false, "Append API requests and responses to the API log file")
}

// applyDownloadFlags copies explicitly set download flags into the
// config overlay. Called from the root command's config load.
func applyDownloadFlags(cmd *cobra.Command, flags *config.CliFlags) {
	f := cmd.Flags()
	if f.Changed("downloads-root") {
		flags.DownloadsRoot = &downloadsRootFlag
	}
	if f.Changed("concurrency") {
		flags.Concurrency = &concurrencyFlag
	}
	if f.Changed("max-attempts") {
		flags.MaxAttempts = &maxAttemptsFlag
	}
	if f.Changed("history-db") {
		flags.HistoryDBPath = &historyDBFlag
	}
	if f.Changed("log-api") {
		flags.LogApiRequests = &logApiFlag
	}
}

// postRef identifies one post to download.
type postRef struct {
	Service   string
	CreatorID string
	PostID    string
}

// parsePostURL splits a post URL into (service, creatorID, postID).
// Expected path shape: /{service}/user/{creatorID}/post/{postID}.
func parsePostURL(rawURL string) (postRef, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return postRef{}, fmt.Errorf("invalid post URL %q: %w", rawURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 5 || segments[1] != "user" || segments[3] != "post" {
		return postRef{}, fmt.Errorf("invalid post URL %q: expected path /{service}/user/{creator}/post/{post}", rawURL)
	}
	return postRef{Service: segments[0], CreatorID: segments[2], PostID: segments[4]}, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg := globalConfig

	refs := make([]postRef, 0, len(args))
	for _, rawURL := range args {
		ref, err := parsePostURL(rawURL)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	httpClient := &http.Client{
		Transport: globalHttpTransport,
		Timeout:   time.Duration(cfg.HTTPTimeoutSec) * time.Second,
	}
	apiClient := api.NewClient(cfg.ApiBaseUrl, httpClient)
	res := resolver.New(apiClient, cfg.DownloadsRoot, cfg.MaxAttempts)

	// Binary downloads share the transport but not the metadata
	// timeout; large attachments get the downloader's default.
	dl := downloader.NewDownloader(&http.Client{Transport: globalHttpTransport, Timeout: 15 * time.Minute}, cfg.MaxAttempts)

	var history *database.DB
	if cfg.HistoryDBPath != "" {
		var err error
		history, err = database.Open(cfg.HistoryDBPath)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer history.Close()
	}

	// Metadata failures are isolated per post: a post that cannot be
	// resolved is logged and skipped, its siblings still download.
	var posts []*models.Post
	resolveFailures := 0
	for _, ref := range refs {
		post, err := res.FetchPost(ref.Service, ref.CreatorID, ref.PostID)
		if err != nil {
			resolveFailures++
			log.WithError(err).WithFields(log.Fields{
				"service": ref.Service,
				"creator": ref.CreatorID,
				"post":    ref.PostID,
			}).Error("Failed to resolve post metadata")
			continue
		}
		posts = append(posts, post)
	}

	tasks := downloader.DownloadAll(posts, dl, cfg.Concurrency)
	if history != nil {
		recordHistory(history, tasks)
	}

	summary := downloader.Summarize(tasks)
	logSummary(summary, resolveFailures)

	if resolveFailures == len(refs) && len(refs) > 0 {
		return errors.New("no posts could be resolved")
	}
	return nil
}

// recordHistory persists one row per task outcome. History failures
// are logged but never fail the run.
func recordHistory(history *database.DB, tasks []downloader.Task) {
	for _, task := range tasks {
		entry := database.Entry{
			URL:      task.Attachment.URL(),
			PostID:   task.PostID,
			Filename: task.Attachment.Filename,
		}
		if task.Succeeded() {
			entry.Status = database.StatusDownloaded
			entry.LocalPath = task.LocalPath
			entry.Bytes = task.Bytes
		} else {
			entry.Status = database.StatusError
			entry.ErrorDetails = task.Err.Error()
		}
		if err := history.Record(entry); err != nil {
			log.WithError(err).Warnf("Failed to record history for %s", entry.URL)
		}
	}
}

func logSummary(summary downloader.Summary, resolveFailures int) {
	log.WithFields(log.Fields{
		"submitted": summary.Submitted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Submitted - summary.Succeeded,
		"bytes":     helpers.BytesToSize(uint64(summary.TotalBytes)),
	}).Info("Download run finished")

	for _, failure := range summary.Failures {
		log.WithError(failure.Err).WithFields(log.Fields{
			"post": failure.PostID,
			"file": failure.Filename,
			"url":  failure.URL,
		}).Error("Attachment failed permanently")
	}
	if resolveFailures > 0 {
		log.Errorf("%d post(s) could not be resolved", resolveFailures)
	}
}
