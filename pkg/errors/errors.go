package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf 返回错误携带的业务错误码，非AppError返回空字符串
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode 判断错误是否携带指定错误码
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

var (
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrInvalidState       = "INVALID_STATE"
	ErrInvalidInput       = "INVALID_INPUT"
	ErrFundingExceeded    = "FUNDING_EXCEEDED"
	ErrAlreadyDecided     = "ALREADY_DECIDED"
	ErrAlreadyDistributed = "ALREADY_DISTRIBUTED"
	ErrAlreadyVoted       = "ALREADY_VOTED"
	ErrVotingClosed       = "VOTING_CLOSED"
	ErrVotingOpen         = "VOTING_OPEN"
	ErrNotFound           = "NOT_FOUND"
	ErrConfigLoad         = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect    = "DATABASE_CONNECT_ERROR"
)
