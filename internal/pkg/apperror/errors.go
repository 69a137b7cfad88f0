package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Коды пропускного контроля.
	ErrCodeExpired       ErrorCode = "EXPIRED"
	ErrCodeMismatch      ErrorCode = "MISMATCH"
	ErrCodeAlreadyUsed   ErrorCode = "ALREADY_USED"
	ErrCodeAlreadyClosed ErrorCode = "ALREADY_CLOSED"
	ErrCodeLimitReached  ErrorCode = "LIMIT_REACHED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeExpired, ErrCodeMismatch:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeAlreadyUsed, ErrCodeAlreadyClosed, ErrCodeLimitReached:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки, если это AppError, иначе INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsConflict(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrCodeConflict, ErrCodeAlreadyUsed, ErrCodeAlreadyClosed, ErrCodeLimitReached:
		return true
	}
	return false
}

var (
	ErrStudentNotFound  = New(ErrCodeNotFound, "студент не найден")
	ErrVisitNotFound    = New(ErrCodeNotFound, "визит не найден")
	ErrOTPNotFound      = New(ErrCodeNotFound, "действующий код не найден")
	ErrOverrideNotFound = New(ErrCodeNotFound, "запрос на внеурочный визит не найден")
	ErrOutpassNotFound  = New(ErrCodeNotFound, "увольнительная не найдена")
	ErrUserNotFound     = New(ErrCodeNotFound, "пользователь не найден")

	ErrOTPExpired   = New(ErrCodeExpired, "срок действия кода истёк")
	ErrOTPMismatch  = New(ErrCodeMismatch, "неверный код")
	ErrOTPUsed      = New(ErrCodeAlreadyUsed, "код уже использован")
	ErrVisitClosed  = New(ErrCodeAlreadyClosed, "визит уже закрыт")
	ErrActiveVisit  = New(ErrCodeConflict, "у посетителя уже есть активный визит к этому студенту")
	ErrVisitorLimit = New(ErrCodeLimitReached, "достигнут дневной лимит посетителей студента")

	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
)
