package domain

import "time"

// Shift types.
const (
	ShiftMorning   = "MORNING"
	ShiftAfternoon = "AFTERNOON"
	ShiftNight     = "NIGHT"
)

// Handover statuses. Transitions are forward-only:
// DRAFT -> IN_PROGRESS -> FINALIZED, and FINALIZED is terminal.
const (
	StatusDraft      = "DRAFT"
	StatusInProgress = "IN_PROGRESS"
	StatusFinalized  = "FINALIZED"
)

// ValidShiftType reports whether s is one of the three shift types.
func ValidShiftType(s string) bool {
	return s == ShiftMorning || s == ShiftAfternoon || s == ShiftNight
}

// CanTransition reports whether a handover may move from one status to
// another. Staying in place is allowed for every status except FINALIZED,
// which accepts no further writes at all.
func CanTransition(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusDraft || to == StatusInProgress || to == StatusFinalized
	case StatusInProgress:
		return to == StatusInProgress || to == StatusFinalized
	default:
		return false
	}
}

// Handover 交接班记录领域模型（对应 handovers 表）
// One shift's transition record for a hospital service.
type Handover struct {
	// 主键
	HandoverID string `db:"handover_id"` // UUID, PRIMARY KEY

	// 班次槽位（hospital+service+shift_date+shift_type 唯一确定一个活动记录）
	Hospital  string    `db:"hospital"`   // VARCHAR(200), NOT NULL
	Service   string    `db:"service"`    // VARCHAR(200), NOT NULL
	ShiftType string    `db:"shift_type"` // VARCHAR(20), NOT NULL ('MORNING'/'AFTERNOON'/'NIGHT')
	ShiftDate time.Time `db:"shift_date"` // DATE, NOT NULL

	// 班次时间
	StartTime time.Time  `db:"start_time"` // TIMESTAMPTZ, NOT NULL
	EndTime   *time.Time `db:"end_time"`   // TIMESTAMPTZ, nullable

	// 状态
	Status string `db:"status"` // VARCHAR(20), NOT NULL, DEFAULT 'DRAFT'

	// 创建人
	CreatedBy string    `db:"created_by"` // UUID, NOT NULL
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL, DEFAULT CURRENT_TIMESTAMP

	// 纳入的患者/任务（join 表 handover_patients / handover_tasks）
	PatientIDs []string
	TaskIDs    []string

	// 检查清单（handover_checklist_items，按 sort_order 升序，同序保持插入顺序）
	Checklist []ChecklistItem

	// 自由文本备注
	Notes string `db:"notes"` // TEXT, nullable

	// 定稿时生成的摘要
	Summary *string `db:"summary"` // TEXT, nullable
}

// ChecklistItem 交接班清单条目（对应 handover_checklist_items 表）
// Owned exclusively by its parent handover.
type ChecklistItem struct {
	ItemID      string     `db:"item_id"`      // UUID, PRIMARY KEY
	HandoverID  string     `db:"handover_id"`  // UUID, NOT NULL, FK to handovers
	Description string     `db:"description"`  // TEXT, NOT NULL
	IsCompleted bool       `db:"is_completed"` // BOOLEAN, NOT NULL, DEFAULT false
	CompletedBy string     `db:"completed_by"` // UUID, nullable
	CompletedAt *time.Time `db:"completed_at"` // TIMESTAMPTZ, nullable
	SortOrder   int        `db:"sort_order"`   // INTEGER, NOT NULL, DEFAULT 0
}
