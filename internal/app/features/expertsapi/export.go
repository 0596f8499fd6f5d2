// internal/app/features/expertsapi/export.go
package expertsapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/engagehub/internal/app/store/activity"
	"github.com/dalemusser/engagehub/internal/app/system/auth"
	"github.com/dalemusser/engagehub/internal/app/system/jsonutil"
)

// exportCSV streams the full active-expert directory as a CSV download.
// The export is recorded in the activity trail.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	experts, err := h.experts.ListAll(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to load experts for export", err)
		jsonutil.InternalError(w, "Failed to export experts")
		return
	}

	filename := fmt.Sprintf("experts-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"Name", "Email", "Phone", "Company", "Position",
		"Expertise", "Availability", "Rating", "Rating Count", "Created",
	})
	for _, e := range experts {
		_ = cw.Write([]string{
			e.Name,
			e.Email,
			e.Phone,
			e.Company,
			e.Position,
			strings.Join(e.Expertise, "; "),
			e.Availability,
			fmt.Sprintf("%.2f", e.Rating.Average),
			fmt.Sprintf("%d", e.Rating.Count),
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()

	current, _ := auth.CurrentAccount(r)
	h.recorder.Exported(r, current.AccountID(), activity.ResourceExpert,
		fmt.Sprintf("exported %d experts to CSV", len(experts)))
}
