package constants

// Session and context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
	ContextKeyProject   = "project"
	ContextKeyMember    = "project_member"
)

// Auth
const (
	SessionCookieName = "board_session"
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI
const (
	MaxAIGeneratedCards = 20
)

// Default board layout seeded into every new project
var DefaultColumnNames = []string{"To Do", "In Progress", "Done"}
