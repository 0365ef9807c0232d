package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"wardshift/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handoverRowColumns = []string{
	"handover_id", "hospital", "service", "shift_type", "shift_date",
	"start_time", "end_time", "status", "created_by", "created_at",
	"notes", "summary",
}

func newMockRepo(t *testing.T) (*PostgresHandoversRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresHandoversRepository(db), mock
}

func draftHandoverRow(id string) *sqlmock.Rows {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(handoverRowColumns).AddRow(
		id, "General Hospital", "Internal Medicine", domain.ShiftMorning, day,
		day.Add(8*time.Hour), nil, domain.StatusDraft, "u1", day.Add(8*time.Hour),
		nil, nil,
	)
}

func expectEmptyRelations(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM handover_patients").
		WillReturnRows(sqlmock.NewRows([]string{"patient_id"}))
	mock.ExpectQuery("FROM handover_tasks").
		WillReturnRows(sqlmock.NewRows([]string{"task_id"}))
	mock.ExpectQuery("FROM handover_checklist_items").
		WillReturnRows(sqlmock.NewRows([]string{
			"item_id", "handover_id", "description", "is_completed",
			"completed_by", "completed_at", "sort_order",
		}))
}

func TestGetHandover_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM handovers").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetHandover(context.Background(), "missing")
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveHandover_NoActiveIsNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM handovers").WillReturnError(sql.ErrNoRows)

	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	h, err := repo.GetActiveHandover(context.Background(), "General Hospital", "", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveHandover_ShiftFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`shift_type = \$4`).
		WillReturnRows(draftHandoverRow("h1"))
	expectEmptyRelations(mock)

	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	h, err := repo.GetActiveHandover(context.Background(), "General Hospital",
		domain.ShiftMorning, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "h1", h.HandoverID)
	assert.Equal(t, domain.StatusDraft, h.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateHandover_SlotConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO handovers").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "handovers_active_slot_idx"})
	mock.ExpectRollback()

	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	_, err := repo.CreateHandover(context.Background(), &domain.Handover{
		Hospital:  "General Hospital",
		Service:   "Internal Medicine",
		ShiftType: domain.ShiftMorning,
		ShiftDate: day,
		StartTime: day.Add(8 * time.Hour),
		CreatedBy: "u1",
	})
	assert.Equal(t, ErrSlotTaken, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateHandover_InsertsRelations(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO handovers").
		WillReturnRows(sqlmock.NewRows([]string{"handover_id"}).AddRow("h1"))
	mock.ExpectExec("INSERT INTO handover_patients").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO handover_tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO handover_checklist_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	id, err := repo.CreateHandover(context.Background(), &domain.Handover{
		Hospital:   "General Hospital",
		Service:    "Internal Medicine",
		ShiftType:  domain.ShiftMorning,
		ShiftDate:  day,
		StartTime:  day.Add(8 * time.Hour),
		CreatedBy:  "u1",
		PatientIDs: []string{"p1"},
		TaskIDs:    []string{"t1"},
		Checklist: []domain.ChecklistItem{
			{ItemID: "c1", Description: "Check IV lines"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "h1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateHandover_FinalizedGuard(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE handovers").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM handovers").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(domain.StatusFinalized))
	mock.ExpectRollback()

	notes := "late edit"
	err := repo.UpdateHandover(context.Background(), "h1", &HandoverPatch{Notes: &notes})
	assert.Equal(t, ErrFinalized, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeHandover_SecondCallFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE handovers").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM handovers").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(domain.StatusFinalized))

	err := repo.FinalizeHandover(context.Background(), "h1", "summary", time.Now())
	assert.Equal(t, ErrFinalized, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeHandover_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE handovers").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM handovers").
		WillReturnError(sql.ErrNoRows)

	err := repo.FinalizeHandover(context.Background(), "missing", "summary", time.Now())
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
