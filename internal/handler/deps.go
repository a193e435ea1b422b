package handler

import (
	"chatsync/internal/app/chat"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/configs"
)

// AppDeps bundles what the HTTP layer needs. Blobs is nil when attachments stay inline.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig
	Store  store.Store
	Blobs  storage.BlobStore
}
