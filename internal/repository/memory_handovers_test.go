package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wardshift/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Many writers racing for the same slot: the check runs under the write lock,
// so exactly one create wins and every loser sees ErrSlotTaken.
func TestCreateHandover_ConcurrentSameSlot(t *testing.T) {
	repo := NewMemoryHandoversRepo()
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	const writers = 16
	var wg sync.WaitGroup
	var created, rejected int32

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateHandover(context.Background(), &domain.Handover{
				Hospital:  "General Hospital",
				Service:   "Internal Medicine",
				ShiftType: domain.ShiftMorning,
				ShiftDate: day,
				StartTime: day.Add(8 * time.Hour),
				CreatedBy: "u1",
				CreatedAt: day.Add(8 * time.Hour),
			})
			switch err {
			case nil:
				atomic.AddInt32(&created, 1)
			case ErrSlotTaken:
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created)
	assert.Equal(t, int32(writers-1), rejected)

	// the surviving record is the only active one for the day
	h, err := repo.GetActiveHandover(context.Background(), "General Hospital", "", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, domain.StatusDraft, h.Status)
}

func TestCreateHandover_SlotReusableAfterFinalize(t *testing.T) {
	repo := NewMemoryHandoversRepo()
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	h := &domain.Handover{
		Hospital:  "General Hospital",
		Service:   "Internal Medicine",
		ShiftType: domain.ShiftMorning,
		ShiftDate: day,
		StartTime: day.Add(8 * time.Hour),
		CreatedBy: "u1",
		CreatedAt: day.Add(8 * time.Hour),
	}
	id, err := repo.CreateHandover(ctx, h)
	require.NoError(t, err)

	_, err = repo.CreateHandover(ctx, h)
	require.Equal(t, ErrSlotTaken, err)

	require.NoError(t, repo.FinalizeHandover(ctx, id, "summary", day.Add(16*time.Hour)))

	// FINALIZED releases the slot
	_, err = repo.CreateHandover(ctx, h)
	assert.NoError(t, err)
}
