package errors

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidationFailed   = errors.New("validation failed")
	ErrBadRequest         = errors.New("invalid request data")
	ErrInternalServer     = errors.New("internal server error")
	ErrAINotConfigured    = errors.New("AI feature not configured")
	ErrAISuggestFailed    = errors.New("failed to generate suggestions")
	ErrDatabaseConnection = errors.New("database connection failed")

	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidTitle       = errors.New("invalid task title")
	ErrInvalidDescription = errors.New("invalid task description")
	ErrInvalidStatus      = errors.New("invalid task status")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrInvalidDueDate     = errors.New("invalid due date")
	ErrInvalidTags        = errors.New("invalid tags")

	ErrInvalidGzipRequest    = errors.New("invalid gzip request body")
	ErrGzipCompressionFailed = errors.New("gzip compression failed")

	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value")
)
