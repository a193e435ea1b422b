package chat

import (
	"encoding/base64"
	"strings"
	"testing"

	"chatsync/internal/pkg/errs"
)

func TestDecodeFileDataURL(t *testing.T) {
	a, err := DecodeFile(FilePayload{
		FileName: "notes.txt",
		Data:     "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
	}, 1024)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(a.Data) != "hello" || a.MimeType != "text/plain" || a.Size() != 5 {
		t.Fatalf("attachment = %+v", a)
	}
	if a.DataURL() != "data:text/plain;base64,aGVsbG8=" {
		t.Fatalf("data url = %q", a.DataURL())
	}
}

func TestDecodeFileBareBase64(t *testing.T) {
	a, err := DecodeFile(FilePayload{
		FileName: "../../etc/photo.png",
		Data:     base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n0000")),
	}, 1024)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.FileName != "photo.png" {
		t.Fatalf("file name = %q, want photo.png", a.FileName)
	}
	if a.MimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", a.MimeType)
	}
}

func TestDecodeFileExplicitMimeWins(t *testing.T) {
	a, err := DecodeFile(FilePayload{FileName: "x.bin", Data: "aGk=", MimeType: "application/x-custom"}, 1024)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.MimeType != "application/x-custom" {
		t.Fatalf("mime = %q", a.MimeType)
	}
}

func TestDecodeFileRejectsOversized(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 2048)))

	_, err := DecodeFile(FilePayload{FileName: "big.txt", Data: data}, 1024)
	if err == nil || err.Kind != errs.KindPayloadTooLarge {
		t.Fatalf("err = %v, want PayloadTooLarge", err)
	}

	exact := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 1024)))
	if _, err := DecodeFile(FilePayload{FileName: "ok.txt", Data: exact}, 1024); err != nil {
		t.Fatalf("file at the limit rejected: %v", err)
	}
}

func TestDecodeFileRejectsInvalid(t *testing.T) {
	cases := map[string]FilePayload{
		"no name":          {Data: "aGk="},
		"no data":          {FileName: "a.txt"},
		"bad base64":       {FileName: "a.txt", Data: "!!!"},
		"non-base64 url":   {FileName: "a.txt", Data: "data:text/plain,hello"},
		"url without body": {FileName: "a.txt", Data: "data:text/plain;base64"},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFile(p, 1024)
			if err == nil || err.Kind != errs.KindValidation {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestFileDraftKeepsSizeAfterOffload(t *testing.T) {
	a, err := DecodeFile(FilePayload{FileName: "hello.bin", Data: "aGVsbG8="}, 1024)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	a.Key = "attachments/k.bin"
	a.Data = nil

	draft := fileDraft(a)
	if draft.FileSize != 5 {
		t.Fatalf("FileSize = %d, want 5", draft.FileSize)
	}
	if draft.FileKey != "attachments/k.bin" || draft.FileData != "" {
		t.Fatalf("draft = %+v, want key without inline data", draft)
	}
}
