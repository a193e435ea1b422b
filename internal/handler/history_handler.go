package handler

import (
	"context"
	"errors"
	"net/http"

	"chatsync/internal/app/store"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/req"
	"chatsync/internal/pkg/resp"
)

// DefaultHistoryLimit is the page size used when limit is omitted.
const DefaultHistoryLimit = 20

// HandleListMessages serves one history page, oldest-first. Anonymous callers get
// the global feed; a session token adds that session's private messages.
func HandleListMessages(st store.Store, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, customErr := req.QueryInt(r, "skip", 0, errs.ErrInvalidPagination)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		limit, customErr := req.QueryInt(r, "limit", DefaultHistoryLimit, errs.ErrInvalidPagination)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if maxLimit > 0 && limit > maxLimit {
			limit = maxLimit
		}

		page, err := st.Page(r.Context(), store.PageQuery{
			Skip:     skip,
			Limit:    limit,
			ViewerID: jwt.ViewerID(r),
		})
		if err != nil {
			resp.RespondError(w, r, storeHTTPError(err))
			return
		}

		out := make([]store.Message, len(page))
		for i, m := range page {
			out[i] = m.ForWire()
		}
		resp.RespondList(w, r, out)
	}
}

// storeHTTPError maps a store failure to an HTTP error response.
func storeHTTPError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, store.ErrInvalidPage):
		return errs.NewError(errs.ErrInvalidPagination)
	case errors.Is(err, store.ErrNotFound):
		return errs.NewError(errs.ErrMessageNotFound)
	case store.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		logx.Warn("Store unavailable while serving request", "error", err.Error())
		return errs.NewError(errs.ErrStoreUnavailable)
	default:
		logx.Error(err, "Store request failed")
		return errs.NewError(errs.ErrUnknown)
	}
}
