package models

import (
	"encoding/json"
	"errors"
	"testing"
)

const validPostJSON = `{
	"post": {
		"id": "12345",
		"title": "Sketch dump",
		"user": "777",
		"service": "patreon"
	},
	"previews": [
		{"name": "a.jpg", "path": "/ab/cd/a.jpg", "server": "https://n1.kemono.su"},
		{"name": "b.png", "path": "/ef/gh/b.png", "server": "https://n2.kemono.su"}
	],
	"attachments": [
		{"name": "pack.zip", "path": "/ij/kl/pack.zip", "server": "https://n3.kemono.su"}
	]
}`

func TestDecodeProfile(t *testing.T) {
	raw := []byte(`{"id":"777","name":"Some Artist","service":"patreon","indexed":"2024-01-01"}`)

	creator, err := DecodeProfile(raw)
	if err != nil {
		t.Fatalf("DecodeProfile failed: %v", err)
	}
	if creator.ID != "777" || creator.Name != "Some Artist" || creator.Service != "patreon" {
		t.Errorf("unexpected creator: %+v", creator)
	}
}

func TestDecodeProfile_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing name", raw: `{"id":"777","service":"patreon"}`},
		{name: "missing id", raw: `{"name":"x","service":"patreon"}`},
		{name: "missing service", raw: `{"id":"777","name":"x"}`},
		{name: "wrong shape", raw: `{"id":777,"name":"x","service":"patreon"}`},
		{name: "not json", raw: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProfile([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestDecodePost(t *testing.T) {
	info, err := DecodePost([]byte(validPostJSON))
	if err != nil {
		t.Fatalf("DecodePost failed: %v", err)
	}

	if info.ID != "12345" {
		t.Errorf("expected id 12345, got %s", info.ID)
	}
	if info.Title != "Sketch dump" {
		t.Errorf("expected title 'Sketch dump', got %s", info.Title)
	}
	if info.User != "777" || info.Service != "patreon" {
		t.Errorf("unexpected user/service: %s/%s", info.User, info.Service)
	}
	if len(info.Previews) != 2 {
		t.Fatalf("expected 2 previews, got %d", len(info.Previews))
	}
	if len(info.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(info.Attachments))
	}
	if info.Previews[0].Server != "https://n1.kemono.su" || info.Previews[0].Path != "/ab/cd/a.jpg" {
		t.Errorf("unexpected first preview: %+v", info.Previews[0])
	}
	if info.Attachments[0].Name != "pack.zip" {
		t.Errorf("unexpected attachment name: %s", info.Attachments[0].Name)
	}
}

func TestDecodePost_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing post object", raw: `{"previews":[],"attachments":[]}`},
		{name: "missing post id", raw: `{"post":{"title":"t","user":"u","service":"s"}}`},
		{name: "missing post title", raw: `{"post":{"id":"1","user":"u","service":"s"}}`},
		{name: "missing post user", raw: `{"post":{"id":"1","title":"t","service":"s"}}`},
		{name: "missing post service", raw: `{"post":{"id":"1","title":"t","user":"u"}}`},
		{
			name: "preview missing server",
			raw:  `{"post":{"id":"1","title":"t","user":"u","service":"s"},"previews":[{"name":"a","path":"/a"}]}`,
		},
		{
			name: "attachment missing path",
			raw:  `{"post":{"id":"1","title":"t","user":"u","service":"s"},"attachments":[{"name":"a","server":"https://x"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePost([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

// Round trip: decoding then re-encoding preserves id, title and
// attachment counts (structural, not byte-identical).
func TestPostInfo_RoundTrip(t *testing.T) {
	info, err := DecodePost([]byte(validPostJSON))
	if err != nil {
		t.Fatalf("DecodePost failed: %v", err)
	}

	reencoded, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	again, err := DecodePost(reencoded)
	if err != nil {
		t.Fatalf("DecodePost of re-encoded payload failed: %v", err)
	}

	if again.ID != info.ID {
		t.Errorf("id not preserved: %s != %s", again.ID, info.ID)
	}
	if again.Title != info.Title {
		t.Errorf("title not preserved: %s != %s", again.Title, info.Title)
	}
	if len(again.Previews) != len(info.Previews) {
		t.Errorf("preview count not preserved: %d != %d", len(again.Previews), len(info.Previews))
	}
	if len(again.Attachments) != len(info.Attachments) {
		t.Errorf("attachment count not preserved: %d != %d", len(again.Attachments), len(info.Attachments))
	}
}

func TestPreviewFilename(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		path     string
		expected string
	}{
		{name: "jpg", index: 0, path: "/ab/cd/a.jpg", expected: "1.jpg"},
		{name: "png second", index: 1, path: "/ef/gh/photo.png", expected: "2.png"},
		{name: "double extension keeps last segment", index: 0, path: "/x/archive.tar.gz", expected: "1.gz"},
		{name: "no extension yields trailing dot", index: 2, path: "/x/noext", expected: "3."},
		{name: "dot in directory only", index: 0, path: "/v1.2/file", expected: "1."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreviewFilename(tt.index, tt.path)
			if got != tt.expected {
				t.Errorf("PreviewFilename(%d, %q) = %q, want %q", tt.index, tt.path, got, tt.expected)
			}
		})
	}
}

func TestAttachmentURL(t *testing.T) {
	a := Attachment{Server: "https://n1.kemono.su", Path: "/ab/cd/a.jpg"}
	if got := a.URL(); got != "https://n1.kemono.su/data/ab/cd/a.jpg" {
		t.Errorf("unexpected URL: %s", got)
	}
}

func TestPostAttachmentsOrder(t *testing.T) {
	p := &Post{
		Pictures: []Attachment{{Filename: "1.jpg"}, {Filename: "2.png"}},
		Files:    []Attachment{{Filename: "pack.zip"}},
	}

	all := p.Attachments()
	if len(all) != 3 {
		t.Fatalf("expected 3 attachments, got %d", len(all))
	}
	if all[0].Filename != "1.jpg" || all[1].Filename != "2.png" || all[2].Filename != "pack.zip" {
		t.Errorf("pictures must precede files: %+v", all)
	}
}
