package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
	ContextKeyWorkspace = "workspace"
	ContextKeyMember    = "workspace_member"
	SessionCookieName   = "workspace_session"
)

// Validation limits
const (
	MinPasswordLength      = 8
	MinNameLength          = 3
	MinWorkspaceNameLength = 3
	MinColorLength         = 3
	MinProjectTitleLength  = 3
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Token lifetimes
const (
	SessionTokenTTL = 7 * 24 * time.Hour
	InviteTokenTTL  = 7 * 24 * time.Hour
)

// Dashboard statistics
const (
	UpcomingTaskWindow  = 7 * 24 * time.Hour
	UpcomingTaskLimit   = 10
	RecentProjectsLimit = 5
	TrendDays           = 7
)

// AI task generation
const (
	MaxAIGeneratedTasks = 20
)
