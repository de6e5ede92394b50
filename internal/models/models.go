package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrMalformedResponse is returned when an API payload is missing a
// required field or a field has the wrong shape. Decoding failures are
// deterministic, so callers must not retry them.
var ErrMalformedResponse = errors.New("malformed API response")

// Creator is the account that owns one or more posts. Instances are
// created once per (service, id) and shared by pointer across every
// post that references them.
type Creator struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Service string `json:"service"`
}

// RemoteFile is one downloadable object as described by the API:
// a preview image or a file attachment.
type RemoteFile struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Server string `json:"server"`
}

// PostInfo is the decoded post payload before creator resolution.
// The Service and User fields come from the response body and are
// authoritative over whatever URL segments the caller used.
type PostInfo struct {
	ID          string
	Title       string
	User        string
	Service     string
	Previews    []RemoteFile
	Attachments []RemoteFile
}

// Attachment is a scheduled download target. Folder is owned by the
// parent post; the attachment only references it.
type Attachment struct {
	Server   string
	Path     string
	Filename string
	Folder   string
}

// URL returns the full download URL for the attachment.
func (a Attachment) URL() string {
	return a.Server + "/data" + a.Path
}

// Post carries resolved metadata for one remote post plus the
// attachments derived from it. Pictures are the renumbered previews,
// Files keep their original names.
type Post struct {
	ID       string
	Title    string
	Creator  *Creator
	Folder   string
	Pictures []Attachment
	Files    []Attachment
}

// Attachments returns pictures followed by file attachments, the
// order downloads are scheduled in.
func (p *Post) Attachments() []Attachment {
	out := make([]Attachment, 0, len(p.Pictures)+len(p.Files))
	out = append(out, p.Pictures...)
	out = append(out, p.Files...)
	return out
}

type profilePayload struct {
	ID      *string `json:"id"`
	Name    *string `json:"name"`
	Service *string `json:"service"`
}

type remoteFilePayload struct {
	Name   *string `json:"name"`
	Path   *string `json:"path"`
	Server *string `json:"server"`
}

type postBodyPayload struct {
	ID      *string `json:"id"`
	Title   *string `json:"title"`
	User    *string `json:"user"`
	Service *string `json:"service"`
}

type postPayload struct {
	Post        *postBodyPayload    `json:"post"`
	Previews    []remoteFilePayload `json:"previews"`
	Attachments []remoteFilePayload `json:"attachments"`
}

// DecodeProfile parses a profile response into a Creator. Any missing
// required field yields ErrMalformedResponse.
func DecodeProfile(raw []byte) (*Creator, error) {
	var p profilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: profile: %v", ErrMalformedResponse, err)
	}
	if p.ID == nil {
		return nil, fmt.Errorf("%w: profile missing required field %q", ErrMalformedResponse, "id")
	}
	if p.Name == nil {
		return nil, fmt.Errorf("%w: profile missing required field %q", ErrMalformedResponse, "name")
	}
	if p.Service == nil {
		return nil, fmt.Errorf("%w: profile missing required field %q", ErrMalformedResponse, "service")
	}
	return &Creator{ID: *p.ID, Name: *p.Name, Service: *p.Service}, nil
}

// DecodePost parses a post response into a PostInfo. Every preview and
// attachment must carry name, path and server; anything absent yields
// ErrMalformedResponse rather than a silent default.
func DecodePost(raw []byte) (*PostInfo, error) {
	var p postPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: post: %v", ErrMalformedResponse, err)
	}
	if p.Post == nil {
		return nil, fmt.Errorf("%w: post missing required field %q", ErrMalformedResponse, "post")
	}
	if p.Post.ID == nil {
		return nil, fmt.Errorf("%w: post missing required field %q", ErrMalformedResponse, "post.id")
	}
	if p.Post.Title == nil {
		return nil, fmt.Errorf("%w: post missing required field %q", ErrMalformedResponse, "post.title")
	}
	if p.Post.User == nil {
		return nil, fmt.Errorf("%w: post missing required field %q", ErrMalformedResponse, "post.user")
	}
	if p.Post.Service == nil {
		return nil, fmt.Errorf("%w: post missing required field %q", ErrMalformedResponse, "post.service")
	}

	previews, err := decodeRemoteFiles(p.Previews, "previews")
	if err != nil {
		return nil, err
	}
	attachments, err := decodeRemoteFiles(p.Attachments, "attachments")
	if err != nil {
		return nil, err
	}

	return &PostInfo{
		ID:          *p.Post.ID,
		Title:       *p.Post.Title,
		User:        *p.Post.User,
		Service:     *p.Post.Service,
		Previews:    previews,
		Attachments: attachments,
	}, nil
}

func decodeRemoteFiles(payloads []remoteFilePayload, field string) ([]RemoteFile, error) {
	files := make([]RemoteFile, 0, len(payloads))
	for i, f := range payloads {
		if f.Name == nil {
			return nil, fmt.Errorf("%w: %s[%d] missing required field %q", ErrMalformedResponse, field, i, "name")
		}
		if f.Path == nil {
			return nil, fmt.Errorf("%w: %s[%d] missing required field %q", ErrMalformedResponse, field, i, "path")
		}
		if f.Server == nil {
			return nil, fmt.Errorf("%w: %s[%d] missing required field %q", ErrMalformedResponse, field, i, "server")
		}
		files = append(files, RemoteFile{Name: *f.Name, Path: *f.Path, Server: *f.Server})
	}
	return files, nil
}

// MarshalJSON re-encodes a PostInfo into the API's post response shape.
func (p *PostInfo) MarshalJSON() ([]byte, error) {
	type postBody struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		User    string `json:"user"`
		Service string `json:"service"`
	}
	return json.Marshal(struct {
		Post        postBody     `json:"post"`
		Previews    []RemoteFile `json:"previews"`
		Attachments []RemoteFile `json:"attachments"`
	}{
		Post:        postBody{ID: p.ID, Title: p.Title, User: p.User, Service: p.Service},
		Previews:    p.Previews,
		Attachments: p.Attachments,
	})
}

// PreviewFilename builds the local name for the index-th (0-based)
// preview: "{1-based index}.{extension}" where the extension is the
// final dot-segment of the remote path. A path with no extension
// yields a trailing empty extension ("3."), which is intentional.
func PreviewFilename(index int, remotePath string) string {
	base := path.Base(remotePath)
	ext := ""
	if dot := strings.LastIndex(base, "."); dot != -1 {
		ext = base[dot+1:]
	}
	return fmt.Sprintf("%d.%s", index+1, ext)
}
