package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"wardshift/internal/domain"

	"github.com/google/uuid"
)

// MemoryHandoversRepo supports DB-less dev and handler tests.
// Mirrors the Postgres semantics including the slot invariant: the check runs
// under the write lock, so concurrent creates cannot both slip through.
type MemoryHandoversRepo struct {
	mu        sync.RWMutex
	handovers map[string]*domain.Handover // handoverID -> record
	order     []string                    // creation order, for deterministic iteration
}

var _ HandoversRepository = (*MemoryHandoversRepo)(nil)

func NewMemoryHandoversRepo() *MemoryHandoversRepo {
	return &MemoryHandoversRepo{
		handovers: map[string]*domain.Handover{},
	}
}

func cloneHandover(h *domain.Handover) *domain.Handover {
	c := *h
	c.PatientIDs = append([]string(nil), h.PatientIDs...)
	c.TaskIDs = append([]string(nil), h.TaskIDs...)
	c.Checklist = append([]domain.ChecklistItem(nil), h.Checklist...)
	if h.EndTime != nil {
		t := *h.EndTime
		c.EndTime = &t
	}
	if h.Summary != nil {
		s := *h.Summary
		c.Summary = &s
	}
	return &c
}

func (r *MemoryHandoversRepo) GetHandover(_ context.Context, handoverID string) (*domain.Handover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handovers[handoverID]
	if !ok {
		return nil, ErrNotFound
	}
	return sortedClone(h), nil
}

func (r *MemoryHandoversRepo) GetActiveHandover(_ context.Context, hospital, shiftType string, dayStart, dayEnd time.Time) (*domain.Handover, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *domain.Handover
	for _, id := range r.order {
		h := r.handovers[id]
		if h.Hospital != hospital {
			continue
		}
		if shiftType != "" && h.ShiftType != shiftType {
			continue
		}
		if h.Status != domain.StatusDraft && h.Status != domain.StatusInProgress {
			continue
		}
		if h.ShiftDate.Before(dayStart) || !h.ShiftDate.Before(dayEnd) {
			continue
		}
		if h.CreatedAt.Before(dayStart) {
			continue
		}
		if best == nil || h.CreatedAt.After(best.CreatedAt) {
			best = h
		}
	}
	if best == nil {
		return nil, nil
	}
	return sortedClone(best), nil
}

func (r *MemoryHandoversRepo) CreateHandover(_ context.Context, h *domain.Handover) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.handovers {
		if existing.Status == domain.StatusFinalized {
			continue
		}
		if existing.Hospital == h.Hospital &&
			existing.Service == h.Service &&
			existing.ShiftType == h.ShiftType &&
			existing.ShiftDate.Equal(h.ShiftDate) {
			return "", ErrSlotTaken
		}
	}

	c := cloneHandover(h)
	if c.HandoverID == "" {
		c.HandoverID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.StatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	for i := range c.Checklist {
		if c.Checklist[i].ItemID == "" {
			c.Checklist[i].ItemID = uuid.NewString()
		}
		c.Checklist[i].HandoverID = c.HandoverID
	}

	r.handovers[c.HandoverID] = c
	r.order = append(r.order, c.HandoverID)
	return c.HandoverID, nil
}

func (r *MemoryHandoversRepo) UpdateHandover(_ context.Context, handoverID string, patch *HandoverPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handovers[handoverID]
	if !ok {
		return ErrNotFound
	}
	if h.Status == domain.StatusFinalized {
		return ErrFinalized
	}
	if patch == nil {
		return nil
	}

	if patch.Notes != nil {
		h.Notes = *patch.Notes
	}
	if patch.Status != "" {
		h.Status = patch.Status
	}
	if patch.PatientIDs != nil {
		h.PatientIDs = append([]string(nil), (*patch.PatientIDs)...)
	}
	if patch.TaskIDs != nil {
		h.TaskIDs = append([]string(nil), (*patch.TaskIDs)...)
	}
	if patch.Checklist != nil {
		items := append([]domain.ChecklistItem(nil), (*patch.Checklist)...)
		for i := range items {
			if items[i].ItemID == "" {
				items[i].ItemID = uuid.NewString()
			}
			items[i].HandoverID = handoverID
		}
		h.Checklist = items
	}
	return nil
}

func (r *MemoryHandoversRepo) FinalizeHandover(_ context.Context, handoverID, summary string, endTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handovers[handoverID]
	if !ok {
		return ErrNotFound
	}
	if h.Status == domain.StatusFinalized {
		return ErrFinalized
	}

	h.Status = domain.StatusFinalized
	h.Summary = &summary
	t := endTime
	h.EndTime = &t
	return nil
}

// sortedClone returns a copy with the checklist in read order:
// sort_order ascending, insertion order breaking ties.
func sortedClone(h *domain.Handover) *domain.Handover {
	c := cloneHandover(h)
	sort.SliceStable(c.Checklist, func(i, j int) bool {
		return c.Checklist[i].SortOrder < c.Checklist[j].SortOrder
	})
	return c
}
