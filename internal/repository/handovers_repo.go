package repository

import (
	"context"
	"errors"
	"time"

	"wardshift/internal/domain"
)

// Storage-level sentinels. The service layer translates these into domain
// errors; repositories stay free of HTTP concerns.
var (
	// ErrNotFound: no handover with that id.
	ErrNotFound = errors.New("handover not found")
	// ErrSlotTaken: a DRAFT/IN_PROGRESS handover already exists for the
	// (hospital, service, shift_date, shift_type) slot.
	ErrSlotTaken = errors.New("active handover already exists for slot")
	// ErrFinalized: the handover is FINALIZED and immutable.
	ErrFinalized = errors.New("handover is finalized")
)

// HandoverPatch 部分更新载荷：nil 字段表示“不修改”
// Checklist is replace-by-list: the supplied items become the whole list.
type HandoverPatch struct {
	PatientIDs *[]string
	TaskIDs    *[]string
	Checklist  *[]domain.ChecklistItem
	Notes      *string
	// Status, when non-empty, is written together with the patch.
	// Callers are responsible for forward-only transitions.
	Status string
}

// HandoversRepository 交接班记录 Repository 接口
type HandoversRepository interface {
	// GetHandover 获取交接班记录（含患者/任务/清单关联）
	GetHandover(ctx context.Context, handoverID string) (*domain.Handover, error)

	// GetActiveHandover returns the most recently created DRAFT/IN_PROGRESS
	// handover for the hospital whose shift_date and created_at both fall in
	// [dayStart, dayEnd). An empty shiftType matches any shift. A nil result
	// with nil error means none exists, which is a normal state at shift
	// start.
	GetActiveHandover(ctx context.Context, hospital, shiftType string, dayStart, dayEnd time.Time) (*domain.Handover, error)

	// CreateHandover 创建交接班记录（返回新 ID；槽位冲突返回 ErrSlotTaken）
	CreateHandover(ctx context.Context, h *domain.Handover) (string, error)

	// UpdateHandover 部分更新（FINALIZED 返回 ErrFinalized）
	UpdateHandover(ctx context.Context, handoverID string, patch *HandoverPatch) error

	// FinalizeHandover stamps summary + end time and moves the record to
	// FINALIZED. Guarded at the storage layer: a second call returns
	// ErrFinalized, never a silent success.
	FinalizeHandover(ctx context.Context, handoverID, summary string, endTime time.Time) error
}

// ProfilesRepository 临床人员档案 Repository 接口
type ProfilesRepository interface {
	// GetProfileByUserID 按认证用户 ID 查档案（不存在返回 ErrProfileNotFound）
	GetProfileByUserID(ctx context.Context, userID string) (*domain.ClinicianProfile, error)
}

// ErrProfileNotFound: the caller has no clinician profile.
var ErrProfileNotFound = errors.New("clinician profile not found")
