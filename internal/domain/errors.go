package domain

import "errors"

// Backend errors - 遠端與本地儲存層錯誤
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBackend indicates the remote backend reported a failure
	ErrBackend = errors.New("backend error")

	// ErrBackendUnavailable indicates the backend tooling cannot be used at all
	// (e.g. the rclone binary is not installed)
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRemoteNotFound indicates the named remote is not configured
	ErrRemoteNotFound = errors.New("remote not found")
)

// Pipeline errors - 執行流程錯誤
var (
	// ErrCancelled indicates the operator declined to continue
	ErrCancelled = errors.New("operation cancelled")

	// ErrSourceLocked indicates another run is already working on the same source
	ErrSourceLocked = errors.New("source already locked by another run")

	// ErrIllegalTransition indicates a run state change outside the state machine
	ErrIllegalTransition = errors.New("illegal run state transition")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates options or config file are malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrInvalidSeparator indicates a flatten separator that cannot be used
	ErrInvalidSeparator = errors.New("invalid separator")

	// ErrUnknownFileType indicates a file type filter value that is not recognised
	ErrUnknownFileType = errors.New("unknown file type")
)
