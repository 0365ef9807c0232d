package httpapi

import (
	"net/http"

	"wardshift/internal/domain"

	"go.uber.org/zap"
)

// ErrorBody 错误响应体，对齐前端约定：{error, code, details?}
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorKind, message string, details any) {
	writeJSON(w, status, ErrorBody{Error: message, Code: string(code), Details: details})
}

// statusForKind 领域错误码到 HTTP 状态码的唯一映射点
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnauthorized, domain.KindSessionExpired:
		return http.StatusUnauthorized
	case domain.KindProfileNotFound, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation, domain.KindImmutableState:
		return http.StatusBadRequest
	case domain.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps a service error to the wire. Unexpected errors are
// logged and collapsed into a generic 500 with no internals leaked.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if de, ok := domain.AsError(err); ok {
		writeError(w, statusForKind(de.Kind), de.Kind, de.Message, de.Details)
		return
	}
	logger.Error("Unhandled error in handover API", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal server error", nil)
}
