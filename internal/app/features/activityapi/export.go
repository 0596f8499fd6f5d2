// internal/app/features/activityapi/export.go
package activityapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
)

// exportCSV streams the full trail as a CSV download, newest first.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.activities.ListAll(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to load activities for export", err)
		jsonutil.InternalError(w, "Failed to export activities")
		return
	}

	filename := fmt.Sprintf("activity-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Time", "User", "Action", "Resource", "Resource ID", "Description", "IP"})
	for _, rec := range records {
		resourceID := ""
		if rec.ResourceID != nil {
			resourceID = rec.ResourceID.Hex()
		}
		_ = cw.Write([]string{
			rec.CreatedAt.Format(time.RFC3339),
			rec.UserID.Hex(),
			rec.Action,
			rec.Resource,
			resourceID,
			rec.Description,
			rec.IP,
		})
	}
	cw.Flush()
}
