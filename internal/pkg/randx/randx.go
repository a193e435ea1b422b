/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used to mint opaque session ids and blob storage keys for file attachments.
*/
package randx

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AttachmentKeyPrefix namespaces attachment objects inside the bucket.
const AttachmentKeyPrefix = "attachments/"

// SessionID returns a new opaque session identifier (UUID v4).
func SessionID() string {
	return uuid.New().String()
}

// AttachmentKey builds a unique object key for an uploaded file, preserving a
// sanitised extension so downloads keep a useful suffix.
func AttachmentKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 16 || strings.ContainsAny(ext, "/\\ ") {
		ext = ""
	}

	return AttachmentKeyPrefix + uuid.New().String() + ext
}

// IsValidSessionID checks that id looks like an id produced by SessionID.
func IsValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
