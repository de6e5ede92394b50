// Package resolver turns post identifiers into fully resolved Post
// values: fetched metadata, the owning creator, and the destination
// folder every attachment will land in.
package resolver

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/NovaHFly/kemono-su-downloader/internal/cache"
	"github.com/NovaHFly/kemono-su-downloader/internal/helpers"
	"github.com/NovaHFly/kemono-su-downloader/internal/models"
	"github.com/NovaHFly/kemono-su-downloader/internal/retry"
)

// MetadataClient fetches raw metadata payloads from the API.
type MetadataClient interface {
	GetProfile(service, creatorID string) ([]byte, error)
	GetPost(service, creatorID, postID string) ([]byte, error)
}

// Resolver fetches and decodes post metadata. Creator lookups are
// memoized across all posts resolved through the same instance.
type Resolver struct {
	client        MetadataClient
	creators      *cache.CreatorCache
	downloadsRoot string
	maxAttempts   int
}

// New creates a Resolver writing under downloadsRoot, retrying each
// metadata fetch up to maxAttempts times.
func New(client MetadataClient, downloadsRoot string, maxAttempts int) *Resolver {
	r := &Resolver{
		client:        client,
		downloadsRoot: downloadsRoot,
		maxAttempts:   maxAttempts,
	}
	r.creators = cache.New(r.fetchCreator)
	return r
}

// fetchCreator performs one retried profile fetch plus decode. Only
// the network fetch is retried; a malformed payload is deterministic
// and surfaces immediately.
func (r *Resolver) fetchCreator(service, creatorID string) (*models.Creator, error) {
	var raw []byte
	op := fmt.Sprintf("fetch profile %s/%s", service, creatorID)
	err := retry.Do(op, r.maxAttempts, func() error {
		body, err := r.client.GetProfile(service, creatorID)
		if err != nil {
			return err
		}
		raw = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models.DecodeProfile(raw)
}

// FetchPost resolves one post: retried metadata fetch, strict decode,
// creator resolution through the cache, then folder and attachment
// derivation. The service and user embedded in the response are
// authoritative over the identifiers the caller supplied.
func (r *Resolver) FetchPost(service, creatorID, postID string) (*models.Post, error) {
	var raw []byte
	op := fmt.Sprintf("fetch post %s/%s/%s", service, creatorID, postID)
	err := retry.Do(op, r.maxAttempts, func() error {
		body, err := r.client.GetPost(service, creatorID, postID)
		if err != nil {
			return err
		}
		raw = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	info, err := models.DecodePost(raw)
	if err != nil {
		return nil, err
	}

	creator, err := r.creators.Resolve(info.Service, info.User)
	if err != nil {
		return nil, fmt.Errorf("resolving creator %s/%s for post %s: %w", info.Service, info.User, info.ID, err)
	}

	folderName := helpers.SanitizeFolderName(fmt.Sprintf("[%s] %s (%s)", creator.Name, info.Title, info.ID))
	folder := filepath.Join(r.downloadsRoot, folderName)

	post := &models.Post{
		ID:       info.ID,
		Title:    info.Title,
		Creator:  creator,
		Folder:   folder,
		Pictures: make([]models.Attachment, 0, len(info.Previews)),
		Files:    make([]models.Attachment, 0, len(info.Attachments)),
	}

	for i, preview := range info.Previews {
		post.Pictures = append(post.Pictures, models.Attachment{
			Server:   preview.Server,
			Path:     preview.Path,
			Filename: models.PreviewFilename(i, preview.Path),
			Folder:   folder,
		})
	}
	for _, file := range info.Attachments {
		post.Files = append(post.Files, models.Attachment{
			Server:   file.Server,
			Path:     file.Path,
			Filename: file.Name,
			Folder:   folder,
		})
	}

	log.WithFields(log.Fields{
		"post":        post.ID,
		"creator":     creator.Name,
		"pictures":    len(post.Pictures),
		"attachments": len(post.Files),
	}).Info("Resolved post metadata")
	return post, nil
}
