package chat

import (
	"encoding/base64"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"chatsync/internal/pkg/errs"
)

const (
	// DefaultMaxFileBytes is the decoded attachment ceiling when none is configured.
	DefaultMaxFileBytes = 5 * 1024 * 1024

	// maxFileNameRunes bounds stored attachment names.
	maxFileNameRunes = 255

	dataURLPrefix = "data:"
)

// Attachment is a decoded and validated file payload.
type Attachment struct {
	FileName string
	MimeType string
	Data     []byte

	// Key is the blob object key once the bytes have been offloaded.
	Key string

	// size is the decoded length, kept after Data is released by an offload.
	size int64
}

// Size returns the decoded size in bytes.
func (a *Attachment) Size() int64 {
	return a.size
}

// DataURL returns the inline transport form of the attachment.
func (a *Attachment) DataURL() string {
	return dataURLPrefix + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// DecodeFile validates p and decodes its data. Oversized payloads are rejected
// from their encoded length before any decoding work is done.
func DecodeFile(p FilePayload, maxBytes int) (*Attachment, *errs.CustomError) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	name := filepath.Base(strings.TrimSpace(strings.ReplaceAll(p.FileName, "\\", "/")))
	if name == "" || name == "." || name == "/" || utf8.RuneCountInString(name) > maxFileNameRunes {
		return nil, errs.NewError(errs.ErrFileInvalid)
	}

	declared, encoded, ok := splitDataURL(strings.TrimSpace(p.Data))
	if !ok || encoded == "" {
		return nil, errs.NewError(errs.ErrFileInvalid)
	}

	if base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+2 {
		return nil, errs.NewError(errs.ErrFileSizeTooLarge, maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil || len(data) == 0 {
		return nil, errs.NewError(errs.ErrFileInvalid)
	}

	if len(data) > maxBytes {
		return nil, errs.NewError(errs.ErrFileSizeTooLarge, maxBytes)
	}

	return &Attachment{
		FileName: name,
		MimeType: resolveMimeType(p.MimeType, declared, name, data),
		Data:     data,
		size:     int64(len(data)),
	}, nil
}

// splitDataURL returns the declared media type and base64 body of a data URL.
// Bare base64 input is returned unchanged with no media type.
func splitDataURL(raw string) (mediaType, encoded string, ok bool) {
	if !strings.HasPrefix(raw, dataURLPrefix) {
		return "", raw, true
	}

	header, body, found := strings.Cut(raw[len(dataURLPrefix):], ",")
	if !found {
		return "", "", false
	}

	params := strings.Split(header, ";")
	if params[len(params)-1] != "base64" {
		return "", "", false
	}

	return params[0], body, true
}

func resolveMimeType(explicit, declared, name string, data []byte) string {
	for _, candidate := range []string{explicit, declared, mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))} {
		if mediaType, _, err := mime.ParseMediaType(candidate); err == nil && strings.Contains(mediaType, "/") {
			return mediaType
		}
	}
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return detected
}
