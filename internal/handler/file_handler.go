package handler

import (
	"encoding/base64"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"
)

// HandleDownloadFile resolves a file message visible to the caller. Offloaded
// attachments redirect to a time-limited presigned URL; inline ones are decoded
// and served directly.
func HandleDownloadFile(st store.Store, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		m, err := st.Get(r.Context(), id)
		if err != nil {
			resp.RespondError(w, r, storeHTTPError(err))
			return
		}

		// Private files of other sessions are reported as missing.
		if !m.IsFile || !m.VisibleTo(jwt.ViewerID(r)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageNotFound))
			return
		}

		if m.FileKey != "" {
			if blobs == nil {
				logx.Warn("File message references blob storage but none is configured", "message_id", m.ID)
				resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
				return
			}

			url, err := blobs.PresignDownload(r.Context(), m.FileKey, m.FileName, storage.PresignedURLDuration)
			if err != nil {
				logx.Error(err, "Failed to presign attachment download", "message_id", m.ID)
				resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
				return
			}

			http.Redirect(w, r, url, http.StatusFound)
			return
		}

		data, ok := decodeInline(m.FileData)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileInvalid))
			return
		}

		mimeType := m.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if disposition := mime.FormatMediaType("attachment", map[string]string{"filename": m.FileName}); disposition != "" {
			w.Header().Set("Content-Disposition", disposition)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// decodeInline extracts the bytes of a stored data URL.
func decodeInline(dataURL string) ([]byte, bool) {
	_, encoded, found := strings.Cut(dataURL, ";base64,")
	if !found || !strings.HasPrefix(dataURL, "data:") {
		return nil, false
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return data, true
}
