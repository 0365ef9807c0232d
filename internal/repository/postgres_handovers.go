package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"wardshift/internal/domain"

	"github.com/lib/pq"
)

// PostgresHandoversRepository 交接班记录 Repository 实现
//
// The one-active-per-slot invariant is enforced by the partial unique index
// handovers_active_slot_idx (see migrations/001_handovers.sql), not by a
// read-then-insert check: concurrent creates for the same slot lose with a
// unique_violation which surfaces as ErrSlotTaken.
type PostgresHandoversRepository struct {
	db *sql.DB
}

// NewPostgresHandoversRepository 创建交接班记录 Repository
func NewPostgresHandoversRepository(db *sql.DB) *PostgresHandoversRepository {
	return &PostgresHandoversRepository{db: db}
}

// 确保实现了接口
var _ HandoversRepository = (*PostgresHandoversRepository)(nil)

const handoverColumns = `
	handover_id::text,
	hospital,
	service,
	shift_type,
	shift_date,
	start_time,
	end_time,
	status,
	created_by::text,
	created_at,
	notes,
	summary
`

func scanHandover(row interface{ Scan(...any) error }) (*domain.Handover, error) {
	var h domain.Handover
	var endTime sql.NullTime
	var notes, summary sql.NullString

	err := row.Scan(
		&h.HandoverID,
		&h.Hospital,
		&h.Service,
		&h.ShiftType,
		&h.ShiftDate,
		&h.StartTime,
		&endTime,
		&h.Status,
		&h.CreatedBy,
		&h.CreatedAt,
		&notes,
		&summary,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		t := endTime.Time
		h.EndTime = &t
	}
	if notes.Valid {
		h.Notes = notes.String
	}
	if summary.Valid {
		s := summary.String
		h.Summary = &s
	}
	return &h, nil
}

// GetHandover 获取交接班记录（含关联）
func (r *PostgresHandoversRepository) GetHandover(ctx context.Context, handoverID string) (*domain.Handover, error) {
	if handoverID == "" {
		return nil, ErrNotFound
	}

	query := `SELECT ` + handoverColumns + ` FROM handovers WHERE handover_id = $1`

	h, err := scanHandover(r.db.QueryRowContext(ctx, query, handoverID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get handover: %w", err)
	}

	if err := r.loadRelations(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// GetActiveHandover 查询当天活动（DRAFT/IN_PROGRESS）的交接班记录
func (r *PostgresHandoversRepository) GetActiveHandover(ctx context.Context, hospital, shiftType string, dayStart, dayEnd time.Time) (*domain.Handover, error) {
	if hospital == "" {
		return nil, nil
	}

	where := []string{
		"hospital = $1",
		"status IN ('DRAFT', 'IN_PROGRESS')",
		"shift_date >= $2 AND shift_date < $3",
		"created_at >= $2",
	}
	args := []any{hospital, dayStart, dayEnd}
	if shiftType != "" {
		where = append(where, fmt.Sprintf("shift_type = $%d", len(args)+1))
		args = append(args, shiftType)
	}

	// ORDER BY created_at DESC keeps the query deterministic even if the
	// slot invariant is ever violated by legacy rows.
	query := `
		SELECT ` + handoverColumns + `
		FROM handovers
		WHERE ` + strings.Join(where, "\n\t\t  AND ") + `
		ORDER BY created_at DESC
		LIMIT 1
	`

	h, err := scanHandover(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active handover: %w", err)
	}

	if err := r.loadRelations(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// CreateHandover 创建交接班记录及其关联
func (r *PostgresHandoversRepository) CreateHandover(ctx context.Context, h *domain.Handover) (string, error) {
	if h.Hospital == "" || h.Service == "" {
		return "", fmt.Errorf("hospital and service are required")
	}
	if h.Status == "" {
		h.Status = domain.StatusDraft
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO handovers (
			hospital,
			service,
			shift_type,
			shift_date,
			start_time,
			end_time,
			status,
			created_by,
			created_at,
			notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING handover_id::text
	`

	var endTime, notes any
	if h.EndTime != nil {
		endTime = *h.EndTime
	}
	if h.Notes != "" {
		notes = h.Notes
	}

	var handoverID string
	err = tx.QueryRowContext(ctx, query, h.Hospital, h.Service, h.ShiftType, h.ShiftDate,
		h.StartTime, endTime, h.Status, h.CreatedBy, h.CreatedAt, notes).Scan(&handoverID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", ErrSlotTaken
		}
		return "", fmt.Errorf("failed to create handover: %w", err)
	}

	if err := replacePatients(ctx, tx, handoverID, h.PatientIDs); err != nil {
		return "", err
	}
	if err := replaceTasks(ctx, tx, handoverID, h.TaskIDs); err != nil {
		return "", err
	}
	if err := replaceChecklist(ctx, tx, handoverID, h.Checklist); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit handover: %w", err)
	}
	return handoverID, nil
}

// UpdateHandover 部分更新交接班记录
func (r *PostgresHandoversRepository) UpdateHandover(ctx context.Context, handoverID string, patch *HandoverPatch) error {
	if handoverID == "" {
		return ErrNotFound
	}
	if patch == nil {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	set := []string{}
	args := []any{handoverID}
	argN := 2

	if patch.Notes != nil {
		set = append(set, fmt.Sprintf("notes = $%d", argN))
		args = append(args, *patch.Notes)
		argN++
	}
	if patch.Status != "" {
		set = append(set, fmt.Sprintf("status = $%d", argN))
		args = append(args, patch.Status)
		argN++
	}
	if len(set) == 0 {
		// relation-only patch: touch nothing, but still take the immutability guard
		set = append(set, "status = status")
	}

	query := `
		UPDATE handovers
		SET ` + strings.Join(set, ", ") + `
		WHERE handover_id = $1 AND status <> 'FINALIZED'
	`

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update handover: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.notFoundOrFinalized(ctx, handoverID)
	}

	if patch.PatientIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM handover_patients WHERE handover_id = $1`, handoverID); err != nil {
			return fmt.Errorf("failed to clear handover patients: %w", err)
		}
		if err := replacePatients(ctx, tx, handoverID, *patch.PatientIDs); err != nil {
			return err
		}
	}
	if patch.TaskIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM handover_tasks WHERE handover_id = $1`, handoverID); err != nil {
			return fmt.Errorf("failed to clear handover tasks: %w", err)
		}
		if err := replaceTasks(ctx, tx, handoverID, *patch.TaskIDs); err != nil {
			return err
		}
	}
	if patch.Checklist != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM handover_checklist_items WHERE handover_id = $1`, handoverID); err != nil {
			return fmt.Errorf("failed to clear checklist items: %w", err)
		}
		if err := replaceChecklist(ctx, tx, handoverID, *patch.Checklist); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit handover update: %w", err)
	}
	return nil
}

// FinalizeHandover 定稿：写入摘要与结束时间并锁定记录
func (r *PostgresHandoversRepository) FinalizeHandover(ctx context.Context, handoverID, summary string, endTime time.Time) error {
	if handoverID == "" {
		return ErrNotFound
	}

	query := `
		UPDATE handovers
		SET status = 'FINALIZED', summary = $2, end_time = $3
		WHERE handover_id = $1 AND status <> 'FINALIZED'
	`

	result, err := r.db.ExecContext(ctx, query, handoverID, summary, endTime)
	if err != nil {
		return fmt.Errorf("failed to finalize handover: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return r.notFoundOrFinalized(ctx, handoverID)
	}
	return nil
}

// notFoundOrFinalized distinguishes the two zero-row causes of a guarded write.
func (r *PostgresHandoversRepository) notFoundOrFinalized(ctx context.Context, handoverID string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM handovers WHERE handover_id = $1`, handoverID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check handover status: %w", err)
	}
	if status == domain.StatusFinalized {
		return ErrFinalized
	}
	return ErrNotFound
}

func (r *PostgresHandoversRepository) loadRelations(ctx context.Context, h *domain.Handover) error {
	patients, err := r.queryIDs(ctx,
		`SELECT patient_id::text FROM handover_patients WHERE handover_id = $1 ORDER BY patient_id`, h.HandoverID)
	if err != nil {
		return fmt.Errorf("failed to load handover patients: %w", err)
	}
	h.PatientIDs = patients

	tasks, err := r.queryIDs(ctx,
		`SELECT task_id::text FROM handover_tasks WHERE handover_id = $1 ORDER BY task_id`, h.HandoverID)
	if err != nil {
		return fmt.Errorf("failed to load handover tasks: %w", err)
	}
	h.TaskIDs = tasks

	// sort_order ascending, insertion order (seq) breaking ties
	query := `
		SELECT
			item_id::text,
			handover_id::text,
			description,
			is_completed,
			completed_by::text,
			completed_at,
			sort_order
		FROM handover_checklist_items
		WHERE handover_id = $1
		ORDER BY sort_order ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, h.HandoverID)
	if err != nil {
		return fmt.Errorf("failed to load checklist items: %w", err)
	}
	defer rows.Close()

	var items []domain.ChecklistItem
	for rows.Next() {
		var item domain.ChecklistItem
		var completedBy sql.NullString
		var completedAt sql.NullTime

		if err := rows.Scan(
			&item.ItemID,
			&item.HandoverID,
			&item.Description,
			&item.IsCompleted,
			&completedBy,
			&completedAt,
			&item.SortOrder,
		); err != nil {
			return fmt.Errorf("failed to scan checklist item: %w", err)
		}

		if completedBy.Valid {
			item.CompletedBy = completedBy.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			item.CompletedAt = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate checklist items: %w", err)
	}
	h.Checklist = items
	return nil
}

func (r *PostgresHandoversRepository) queryIDs(ctx context.Context, query, handoverID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, handoverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replacePatients(ctx context.Context, tx *sql.Tx, handoverID string, patientIDs []string) error {
	for _, pid := range patientIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO handover_patients (handover_id, patient_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			handoverID, pid)
		if err != nil {
			return fmt.Errorf("failed to insert handover patient: %w", err)
		}
	}
	return nil
}

func replaceTasks(ctx context.Context, tx *sql.Tx, handoverID string, taskIDs []string) error {
	for _, tid := range taskIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO handover_tasks (handover_id, task_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			handoverID, tid)
		if err != nil {
			return fmt.Errorf("failed to insert handover task: %w", err)
		}
	}
	return nil
}

func replaceChecklist(ctx context.Context, tx *sql.Tx, handoverID string, items []domain.ChecklistItem) error {
	for _, item := range items {
		var completedBy, completedAt any
		if item.CompletedBy != "" {
			completedBy = item.CompletedBy
		}
		if item.CompletedAt != nil {
			completedAt = *item.CompletedAt
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO handover_checklist_items (
				item_id, handover_id, description, is_completed, completed_by, completed_at, sort_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ItemID, handoverID, item.Description, item.IsCompleted, completedBy, completedAt, item.SortOrder)
		if err != nil {
			return fmt.Errorf("failed to insert checklist item: %w", err)
		}
	}
	return nil
}
