package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID  = "user_id"
	SessionCookieName = "taskpick_session"
)

// Identity headers
const (
	HeaderAuthorization = "Authorization"
	HeaderUserID        = "user-id"
	BearerPrefix        = "Bearer "
)

// Account limits
const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
	MaxNameLength     = 100
)

// Task listing
const (
	TaskPageSize    = 9
	DefaultPage     = 1
	DefaultStatus   = "created"
	StatusSeparator = ","
)

// Pagination modes
const (
	PaginationCumulative = "cumulative"
	PaginationWindow     = "window"
)

// Assistant
const (
	MaxAssistantPicks       = 3
	DefaultAssistantTimeout = 30 * time.Second
	DefaultTokenTTL         = 24 * time.Hour
)
