package common

import "errors"

var (
	// ErrNotConnected 未连接错误
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected 已连接错误
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotFound 未找到错误
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput 无效输入错误
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoMatchSelected 未选择比赛
	ErrNoMatchSelected = errors.New("no match selected")

	// ErrStorageFailed 存储失败错误
	ErrStorageFailed = errors.New("storage failed")

	// ErrUnauthorized 未授权错误
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoRefreshToken 没有刷新令牌
	ErrNoRefreshToken = errors.New("no refresh token")
)

// Error codes carried by AppError.
const (
	CodeTransport = "TRANSPORT_FAILED"
	CodeStorage   = "STORAGE_FAILED"
	CodeDecode    = "DECODE_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 创建应用错误
func NewAppError(code string, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
