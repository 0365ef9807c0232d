package httpapi

import (
	"net/http"
	"strings"
	"time"

	"wardshift/internal/domain"
	"wardshift/internal/ratelimit"
	"wardshift/internal/service"

	"go.uber.org/zap"
)

// Per-operation fixed-window limits, all over a 60 second window and keyed
// by "handover:<action>:<userId>".
const (
	rateWindow      = 60 * time.Second
	limitActive     = 10
	limitGet        = 20
	limitPatch      = 20
	limitCreate     = 5
	limitFinalize   = 5
	limitExport     = 5
	limitExtraction = 5
)

// HandoverHandler 交接班 API Handler
type HandoverHandler struct {
	svc      service.HandoverService
	extract  *service.ExtractClient
	sessions SessionProvider
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
}

// NewHandoverHandler 创建交接班 Handler
func NewHandoverHandler(svc service.HandoverService, extract *service.ExtractClient, sessions SessionProvider, limiter *ratelimit.Limiter, logger *zap.Logger) *HandoverHandler {
	return &HandoverHandler{
		svc:      svc,
		extract:  extract,
		sessions: sessions,
		limiter:  limiter,
		logger:   logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *HandoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	path := strings.TrimPrefix(r.URL.Path, "/handover")
	switch path {
	case "", "/":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Create(w, r)
	case "/active":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetActive(w, r)
	case "/extract-patients":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ExtractPatients(w, r)
	default:
		rest := strings.TrimPrefix(path, "/")
		switch {
		case strings.HasSuffix(rest, "/finalize"):
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Finalize(w, r, strings.TrimSuffix(rest, "/finalize"))
		case strings.HasSuffix(rest, "/export"):
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Export(w, r, strings.TrimSuffix(rest, "/export"))
		case rest != "" && !strings.Contains(rest, "/"):
			switch r.Method {
			case http.MethodGet:
				h.GetByID(w, r, rest)
			case http.MethodPatch:
				h.Patch(w, r, rest)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

// authenticate resolves the session or writes the 401.
func (h *HandoverHandler) authenticate(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := h.sessions.GetSession(r.Context(), r)
	if err != nil {
		h.logger.Error("Session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal server error", nil)
		return nil, false
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, domain.KindSessionExpired, "session expired or invalid", nil)
		return nil, false
	}
	return sess, true
}

// allow applies the fixed-window limit for one user+operation and writes the
// rate-limit headers. On deny it writes the 429 with remaining=0.
func (h *HandoverHandler) allow(w http.ResponseWriter, r *http.Request, action, userID string, max int) bool {
	id := "handover:" + action + ":" + userID
	res := h.limiter.Check(r.Context(), id, max, rateWindow)
	ratelimit.SetHeaders(w.Header(), max, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, domain.KindRateLimit, "too many requests", nil)
		return false
	}
	return true
}

// GetActive 查询当前活动交接班记录；无记录时返回 {"handover": null}
func (h *HandoverHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "active", sess.UserID, limitActive) {
		return
	}

	q := r.URL.Query()
	handover, err := h.svc.GetActiveHandover(r.Context(), sess.UserID, q.Get("hospital"), q.Get("date"), q.Get("shift"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	if handover == nil {
		writeJSON(w, http.StatusOK, map[string]any{"handover": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handover": handoverJSON(handover)})
}

// Create 创建交接班记录
func (h *HandoverHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "create", sess.UserID, limitCreate) {
		return
	}

	var req service.CreateHandoverRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid JSON body", nil)
		return
	}
	req.CreatedBy = sess.UserID

	handover, err := h.svc.CreateHandover(r.Context(), req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handover": handoverJSON(handover)})
}

// GetByID 按 ID 获取交接班记录
func (h *HandoverHandler) GetByID(w http.ResponseWriter, r *http.Request, handoverID string) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "get", sess.UserID, limitGet) {
		return
	}

	handover, err := h.svc.GetHandover(r.Context(), handoverID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handover": handoverJSON(handover)})
}

// Patch 部分更新交接班记录
func (h *HandoverHandler) Patch(w http.ResponseWriter, r *http.Request, handoverID string) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "update", sess.UserID, limitPatch) {
		return
	}

	var req service.UpdateHandoverRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid JSON body", nil)
		return
	}
	req.UpdatedBy = sess.UserID

	handover, err := h.svc.UpdateHandover(r.Context(), handoverID, req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handover": handoverJSON(handover)})
}

// Finalize 定稿并锁定
func (h *HandoverHandler) Finalize(w http.ResponseWriter, r *http.Request, handoverID string) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "finalize", sess.UserID, limitFinalize) {
		return
	}

	handover, err := h.svc.FinalizeHandover(r.Context(), handoverID, sess.UserID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"handover": handoverJSON(handover),
		"message":  "handover finalized",
	})
}

// Export 导出交接班报表（xlsx）
func (h *HandoverHandler) Export(w http.ResponseWriter, r *http.Request, handoverID string) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "export", sess.UserID, limitExport) {
		return
	}

	handover, err := h.svc.GetHandover(r.Context(), handoverID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	data, err := BuildHandoverWorkbook(handover)
	if err != nil {
		h.logger.Error("Failed to build handover workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal server error", nil)
		return
	}

	filename := "handover-" + handover.ShiftDate.Format("2006-01-02") + "-" + strings.ToLower(handover.ShiftType) + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExtractPatients 调用外部提取服务，把自由文本转成结构化患者列表
func (h *HandoverHandler) ExtractPatients(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, "extract", sess.UserID, limitExtraction) {
		return
	}
	if h.extract == nil {
		writeError(w, http.StatusServiceUnavailable, domain.KindInternal, "extraction service not configured", nil)
		return
	}

	var req struct {
		Document string `json:"document"`
		MimeType string `json:"mimeType"`
	}
	if err := readBodyJSON(r, 4<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.Document) == "" {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "document is required",
			map[string]any{"document": "required"})
		return
	}

	records, err := h.extract.ExtractPatients(r.Context(), req.Document, req.MimeType)
	if err != nil {
		h.logger.Error("Patient extraction failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, domain.KindInternal, "extraction service unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": records})
}

// handoverJSON 交接班记录响应视图
func handoverJSON(h *domain.Handover) map[string]any {
	checklist := make([]map[string]any, 0, len(h.Checklist))
	for _, item := range h.Checklist {
		m := map[string]any{
			"id":          item.ItemID,
			"description": item.Description,
			"isCompleted": item.IsCompleted,
			"order":       item.SortOrder,
		}
		if item.CompletedBy != "" {
			m["completedBy"] = item.CompletedBy
		}
		if item.CompletedAt != nil {
			m["completedAt"] = item.CompletedAt.UTC().Format(time.RFC3339)
		}
		checklist = append(checklist, m)
	}

	patientIDs := h.PatientIDs
	if patientIDs == nil {
		patientIDs = []string{}
	}
	taskIDs := h.TaskIDs
	if taskIDs == nil {
		taskIDs = []string{}
	}

	m := map[string]any{
		"id":             h.HandoverID,
		"hospital":       h.Hospital,
		"service":        h.Service,
		"shiftType":      h.ShiftType,
		"shiftDate":      h.ShiftDate.Format("2006-01-02"),
		"startTime":      h.StartTime.UTC().Format(time.RFC3339),
		"status":         h.Status,
		"createdBy":      h.CreatedBy,
		"createdAt":      h.CreatedAt.UTC().Format(time.RFC3339),
		"patientIds":     patientIDs,
		"taskIds":        taskIDs,
		"checklistItems": checklist,
		"notes":          h.Notes,
	}
	if h.EndTime != nil {
		m["endTime"] = h.EndTime.UTC().Format(time.RFC3339)
	}
	if h.Summary != nil {
		m["summary"] = *h.Summary
	}
	return m
}
