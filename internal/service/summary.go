package service

import (
	"fmt"
	"strings"
	"time"

	"wardshift/internal/domain"
)

// BuildSummary renders the shift-change summary stored on finalization.
// Deterministic for a given record, so repeated rendering of the same state
// produces the same text.
func BuildSummary(h *domain.Handover, finalizedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s shift handover for %s / %s, %s.",
		h.ShiftType, h.Hospital, h.Service, h.ShiftDate.Format("2006-01-02"))

	fmt.Fprintf(&b, " Patients included: %d.", len(h.PatientIDs))
	fmt.Fprintf(&b, " Tasks carried over: %d.", len(h.TaskIDs))

	completed := 0
	var pending []string
	for _, item := range h.Checklist {
		if item.IsCompleted {
			completed++
		} else {
			pending = append(pending, item.Description)
		}
	}
	fmt.Fprintf(&b, " Checklist: %d/%d completed.", completed, len(h.Checklist))
	if len(pending) > 0 {
		fmt.Fprintf(&b, " Pending: %s.", strings.Join(pending, "; "))
	}

	if notes := strings.TrimSpace(h.Notes); notes != "" {
		fmt.Fprintf(&b, " Notes: %s", notes)
	}

	fmt.Fprintf(&b, " Finalized at %s.", finalizedAt.UTC().Format(time.RFC3339))
	return b.String()
}
