package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestNewBlobStoreRequiresBucket(t *testing.T) {
	if _, err := NewBlobStore(context.Background(), ServiceConfig{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestPresignDownloadIsLocal(t *testing.T) {
	blobs, err := NewBlobStore(context.Background(), ServiceConfig{
		S3BucketName:      "chat",
		S3Endpoint:        "http://127.0.0.1:9000",
		S3AccessKeyID:     "key",
		S3SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	raw, err := blobs.PresignDownload(context.Background(), "attachments/abc.png", "cat photo.png", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if u.Host != "127.0.0.1:9000" {
		t.Fatalf("host = %q, want endpoint host", u.Host)
	}
	if !strings.HasPrefix(u.Path, "/chat/attachments/abc.png") {
		t.Fatalf("path = %q, want path-style bucket/key", u.Path)
	}
	if got := u.Query().Get("response-content-disposition"); !strings.Contains(got, "cat photo.png") {
		t.Fatalf("content disposition = %q", got)
	}
}

func TestAttachmentDisposition(t *testing.T) {
	if got := attachmentDisposition(""); got != "attachment" {
		t.Fatalf("empty name = %q", got)
	}
	if got := attachmentDisposition("a.txt"); got != "attachment; filename=a.txt" {
		t.Fatalf("disposition = %q", got)
	}
}
