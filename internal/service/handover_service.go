package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wardshift/internal/domain"
	"wardshift/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandoverService 交接班生命周期服务接口
//
// Operations return *domain.Error values for every expected failure; plain
// errors only escape for storage faults, which the HTTP layer turns into 500s.
type HandoverService interface {
	// CreateHandover 创建交接班记录（初始状态 DRAFT）
	CreateHandover(ctx context.Context, req CreateHandoverRequest) (*domain.Handover, error)

	// GetActiveHandover returns the current DRAFT/IN_PROGRESS handover for
	// the hospital (default: the caller's profile hospital) and date
	// (default: today), optionally narrowed to one shift type. A nil
	// handover with nil error is the normal empty state at shift start.
	GetActiveHandover(ctx context.Context, userID, hospital, date, shiftType string) (*domain.Handover, error)

	// GetHandover 按 ID 获取交接班记录（含关联）
	GetHandover(ctx context.Context, handoverID string) (*domain.Handover, error)

	// UpdateHandover 部分更新（患者/任务/清单/备注）
	UpdateHandover(ctx context.Context, handoverID string, req UpdateHandoverRequest) (*domain.Handover, error)

	// FinalizeHandover 定稿并锁定；二次定稿返回 IMMUTABLE_STATE
	FinalizeHandover(ctx context.Context, handoverID, userID string) (*domain.Handover, error)
}

// handoverService 实现
type handoverService struct {
	handovers repository.HandoversRepository
	profiles  repository.ProfilesRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandoverService 创建 HandoverService 实例
func NewHandoverService(handovers repository.HandoversRepository, profiles repository.ProfilesRepository, logger *zap.Logger) HandoverService {
	return &handoverService{
		handovers: handovers,
		profiles:  profiles,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateHandoverRequest 创建请求（字符串字段在此解析与校验）
type CreateHandoverRequest struct {
	Hospital  string `json:"hospital"`
	Service   string `json:"service"`
	ShiftType string `json:"shiftType"`
	ShiftDate string `json:"shiftDate"` // "2006-01-02" or RFC3339
	StartTime string `json:"startTime"` // RFC3339
	EndTime   string `json:"endTime"`   // RFC3339, optional
	Notes     string `json:"notes"`
	CreatedBy string `json:"-"` // session user, set by the handler
}

// ChecklistItemInput 清单条目载荷
type ChecklistItemInput struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
	CompletedBy string `json:"completedBy"`
	CompletedAt string `json:"completedAt"` // RFC3339, optional
	Order       int    `json:"order"`
}

// UpdateHandoverRequest 部分更新请求：nil 字段表示“不修改”
// checklistItems is full-replace: the supplied list becomes the checklist.
type UpdateHandoverRequest struct {
	PatientIDs     *[]string             `json:"patientIds"`
	TaskIDs        *[]string             `json:"taskIds"`
	ChecklistItems *[]ChecklistItemInput `json:"checklistItems"`
	Notes          *string               `json:"notes"`
	UpdatedBy      string                `json:"-"`
}

// CreateHandover 创建交接班记录
func (s *handoverService) CreateHandover(ctx context.Context, req CreateHandoverRequest) (*domain.Handover, error) {
	details := map[string]any{}

	req.Hospital = strings.TrimSpace(req.Hospital)
	req.Service = strings.TrimSpace(req.Service)
	if req.Hospital == "" {
		details["hospital"] = "required"
	}
	if req.Service == "" {
		details["service"] = "required"
	}
	if !domain.ValidShiftType(req.ShiftType) {
		details["shiftType"] = "must be one of MORNING, AFTERNOON, NIGHT"
	}

	shiftDate, err := parseDay(req.ShiftDate)
	if err != nil {
		details["shiftDate"] = "not a parseable date"
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		details["startTime"] = "not a parseable timestamp"
	}
	var endTime *time.Time
	if req.EndTime != "" {
		t, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			details["endTime"] = "not a parseable timestamp"
		} else {
			endTime = &t
		}
	}

	if len(details) > 0 {
		return nil, domain.NewErrorWithDetails(domain.KindValidation, "invalid handover payload", details)
	}

	h := &domain.Handover{
		Hospital:  req.Hospital,
		Service:   req.Service,
		ShiftType: req.ShiftType,
		ShiftDate: shiftDate,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    domain.StatusDraft,
		CreatedBy: req.CreatedBy,
		CreatedAt: s.now(),
		Notes:     req.Notes,
	}

	handoverID, err := s.handovers.CreateHandover(ctx, h)
	if err != nil {
		if err == repository.ErrSlotTaken {
			s.logger.Warn("Handover create rejected: slot already active",
				zap.String("hospital", req.Hospital),
				zap.String("service", req.Service),
				zap.String("shift_type", req.ShiftType),
				zap.String("shift_date", req.ShiftDate),
			)
			return nil, domain.NewErrorWithDetails(domain.KindValidation,
				"an active handover already exists for this shift",
				map[string]any{
					"hospital":  req.Hospital,
					"service":   req.Service,
					"shiftType": req.ShiftType,
					"shiftDate": req.ShiftDate,
				})
		}
		return nil, fmt.Errorf("failed to create handover: %w", err)
	}

	s.logger.Info("Handover created",
		zap.String("handover_id", handoverID),
		zap.String("hospital", h.Hospital),
		zap.String("shift_type", h.ShiftType),
	)
	return s.handovers.GetHandover(ctx, handoverID)
}

// GetActiveHandover 查询当前活动交接班记录
func (s *handoverService) GetActiveHandover(ctx context.Context, userID, hospital, date, shiftType string) (*domain.Handover, error) {
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrProfileNotFound {
			return nil, domain.NewError(domain.KindProfileNotFound, "clinician profile not found")
		}
		return nil, fmt.Errorf("failed to resolve clinician profile: %w", err)
	}
	if hospital == "" {
		hospital = profile.Hospital
	}

	if shiftType != "" && !domain.ValidShiftType(shiftType) {
		return nil, domain.NewErrorWithDetails(domain.KindValidation, "invalid shift type",
			map[string]any{"shift": "must be one of MORNING, AFTERNOON, NIGHT"})
	}

	day := s.now()
	if date != "" {
		day, err = parseDay(date)
		if err != nil {
			return nil, domain.NewErrorWithDetails(domain.KindValidation, "invalid date",
				map[string]any{"date": "not a parseable date"})
		}
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	h, err := s.handovers.GetActiveHandover(ctx, hospital, shiftType, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to get active handover: %w", err)
	}
	return h, nil
}

// GetHandover 按 ID 获取
func (s *handoverService) GetHandover(ctx context.Context, handoverID string) (*domain.Handover, error) {
	h, err := s.handovers.GetHandover(ctx, handoverID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return h, nil
}

// UpdateHandover 部分更新
func (s *handoverService) UpdateHandover(ctx context.Context, handoverID string, req UpdateHandoverRequest) (*domain.Handover, error) {
	h, err := s.handovers.GetHandover(ctx, handoverID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if !domain.CanTransition(h.Status, domain.StatusInProgress) {
		return nil, domain.NewError(domain.KindImmutableState, "handover is finalized and cannot be modified")
	}

	patch := &repository.HandoverPatch{
		PatientIDs: req.PatientIDs,
		TaskIDs:    req.TaskIDs,
		Notes:      req.Notes,
	}

	if req.ChecklistItems != nil {
		items, verr := s.buildChecklist(handoverID, *req.ChecklistItems)
		if verr != nil {
			return nil, verr
		}
		patch.Checklist = &items
	}

	// the first content edit moves a draft forward; a patch carrying no
	// fields is a no-op and leaves the status alone
	hasContent := req.PatientIDs != nil || req.TaskIDs != nil ||
		req.ChecklistItems != nil || req.Notes != nil
	if hasContent && h.Status == domain.StatusDraft {
		patch.Status = domain.StatusInProgress
	}

	if err := s.handovers.UpdateHandover(ctx, handoverID, patch); err != nil {
		return nil, translateRepoErr(err)
	}

	s.logger.Info("Handover updated",
		zap.String("handover_id", handoverID),
		zap.String("updated_by", req.UpdatedBy),
	)
	return s.handovers.GetHandover(ctx, handoverID)
}

// FinalizeHandover 定稿并锁定
func (s *handoverService) FinalizeHandover(ctx context.Context, handoverID, userID string) (*domain.Handover, error) {
	h, err := s.handovers.GetHandover(ctx, handoverID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if !domain.CanTransition(h.Status, domain.StatusFinalized) {
		return nil, domain.NewError(domain.KindImmutableState, "handover is already finalized")
	}

	finalizedAt := s.now()
	summary := BuildSummary(h, finalizedAt)

	if err := s.handovers.FinalizeHandover(ctx, handoverID, summary, finalizedAt); err != nil {
		return nil, translateRepoErr(err)
	}

	s.logger.Info("Handover finalized",
		zap.String("handover_id", handoverID),
		zap.String("finalized_by", userID),
	)
	return s.handovers.GetHandover(ctx, handoverID)
}

func (s *handoverService) buildChecklist(handoverID string, inputs []ChecklistItemInput) ([]domain.ChecklistItem, error) {
	items := make([]domain.ChecklistItem, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Description) == "" {
			return nil, domain.NewErrorWithDetails(domain.KindValidation, "invalid checklist item",
				map[string]any{"index": i, "description": "required"})
		}

		item := domain.ChecklistItem{
			ItemID:      in.ID,
			HandoverID:  handoverID,
			Description: in.Description,
			IsCompleted: in.IsCompleted,
			CompletedBy: in.CompletedBy,
			SortOrder:   in.Order,
		}
		if item.ItemID == "" {
			item.ItemID = uuid.NewString()
		}
		if in.CompletedAt != "" {
			t, err := time.Parse(time.RFC3339, in.CompletedAt)
			if err != nil {
				return nil, domain.NewErrorWithDetails(domain.KindValidation, "invalid checklist item",
					map[string]any{"index": i, "completedAt": "not a parseable timestamp"})
			}
			item.CompletedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}

func translateRepoErr(err error) error {
	switch err {
	case repository.ErrNotFound:
		return domain.NewError(domain.KindNotFound, "handover not found")
	case repository.ErrFinalized:
		return domain.NewError(domain.KindImmutableState, "handover is finalized and cannot be modified")
	default:
		return err
	}
}

// parseDay accepts a calendar day ("2006-01-02") or a full RFC3339 timestamp
// and normalizes to midnight in the timestamp's location.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
}
