// internal/app/features/admin/cleanup.go
package admin

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/eventhub/internal/app/features/errors"
	"github.com/dalemusser/eventhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleCleanupPending handles POST /admin/cleanup-pending. It runs one
// pass of the pending-account worker now instead of waiting for the timer.
func (h *Handler) HandleCleanupPending(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Gates.RequireAdmin(w, r)
	if !ok {
		return
	}
	if h.Cleanup == nil {
		uierrors.Write(w, http.StatusServiceUnavailable, "cleanup_disabled", "Pending account cleanup is not configured.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	removed, err := h.Cleanup.RunOnce(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "pending account cleanup failed", err, "")
		return
	}
	h.Log.Info("pending account cleanup run by admin",
		zap.String("by_user_id", sc.UserID.Hex()),
		zap.Int64("removed", removed))
	h.Audit.PendingAccountsPurged(ctx, r, sc.UserID, removed)
	uierrors.WriteJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
