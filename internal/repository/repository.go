package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-board-api/internal/models"
)

// BoardStore is the remote store contract consumed by the board core.
// Calls are independent; nothing here spans a transaction.
type BoardStore interface {
	// ListColumns returns a project's columns ordered by position
	ListColumns(ctx context.Context, projectID uint64) ([]models.Column, error)

	// ListCards returns a column's cards ordered by position
	ListCards(ctx context.Context, columnID uint64) ([]models.Card, error)

	// UpdateCard writes the set fields of a single card
	UpdateCard(ctx context.Context, cardID uint64, fields CardFields) error

	// UpdateCardsBatch writes one update per card, in order, stopping at the first failure
	UpdateCardsBatch(ctx context.Context, updates []CardUpdate) error
}

// TaskStore is the task half of the remote store contract.
type TaskStore interface {
	// UpdateTask writes the set fields of a single task
	UpdateTask(ctx context.Context, taskID uint64, fields TaskFields) error
}

// BoardRepository defines the interface for column and card data access
type BoardRepository interface {
	BoardStore

	// CreateColumn inserts a column
	CreateColumn(ctx context.Context, column *models.Column) error

	// FindColumn finds a column by ID
	FindColumn(ctx context.Context, id uint64) (*models.Column, error)

	// UpdateColumn writes the set fields of a column
	UpdateColumn(ctx context.Context, id uint64, fields ColumnFields) error

	// DeleteColumn soft deletes a column
	DeleteColumn(ctx context.Context, id uint64) error

	// CountCards counts the cards in a column
	CountCards(ctx context.Context, columnID uint64) (int64, error)

	// CreateCard inserts a card
	CreateCard(ctx context.Context, card *models.Card) error

	// FindCard finds a card by ID
	FindCard(ctx context.Context, id uint64) (*models.Card, error)

	// DeleteCard soft deletes a card
	DeleteCard(ctx context.Context, id uint64) error

	// ListProjectCards returns every card of a project
	ListProjectCards(ctx context.Context, projectID uint64) ([]models.Card, error)
}

// CardUpdate pairs a card with the fields to write
type CardUpdate struct {
	CardID uint64
	Fields CardFields
}

// CardFields is a partial card. Nil fields are left untouched.
type CardFields struct {
	ColumnID      *uint64
	Position      *int64
	Title         *string
	Description   *string
	Tags          *[]string
	Priority      *models.Priority
	AssigneeID    *uint64
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	Completed     *bool
	// CompletedAt is written whenever Completed is set; nil stores NULL.
	CompletedAt *time.Time
	UpdatedAt   *time.Time
}

// ColumnFields is a partial column
type ColumnFields struct {
	Name     *string
	Position *int64
}

// TaskFields is a partial task. Nil fields are left untouched.
type TaskFields struct {
	Title          *string
	Description    *string
	TaskDate       *time.Time
	StartTime      *string
	ClearStartTime bool
	EndTime        *string
	ClearEndTime   bool
	Status         *models.TaskStatus
	Completed      *bool
	// CompletedAt is written whenever Completed is set; nil stores NULL.
	CompletedAt *time.Time
	UpdatedAt   *time.Time
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID uint64
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *models.TaskStatus
}

// TaskRepository defines the interface for calendar task data access
type TaskRepository interface {
	TaskStore

	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves a project's tasks ordered by date and start time
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)

	// ListScheduledOn retrieves tasks of every project scheduled on the given day
	ListScheduledOn(ctx context.Context, day time.Time) ([]models.Task, error)

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project, its owner membership and its initial columns atomically
	Create(ctx context.Context, project *models.Project, columns []models.Column) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// FindByInviteCode finds a project by invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Project, error)

	// Update saves a project
	Update(ctx context.Context, project *models.Project) error

	// AddMember adds a contributor to a project
	AddMember(ctx context.Context, member *models.ProjectMember) error

	// RemoveMember removes a contributor from a project
	RemoveMember(ctx context.Context, projectID, userID uint64) error

	// FindMember finds a specific project member
	FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembersByUserID lists all projects a user is a member of
	ListMembersByUserID(ctx context.Context, userID uint64) ([]models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(ctx context.Context, projectID uint64) ([]models.ProjectMember, error)
}

// NoteRepository defines the interface for project note data access
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	FindByID(ctx context.Context, id uint64) (*models.Note, error)
	List(ctx context.Context, projectID uint64, offset, limit int) ([]models.Note, int64, error)
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id uint64) error
}

// LinkRepository defines the interface for project link data access
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	FindByID(ctx context.Context, id uint64) (*models.Link, error)
	List(ctx context.Context, projectID uint64, offset, limit int) ([]models.Link, int64, error)
	Update(ctx context.Context, link *models.Link) error
	Delete(ctx context.Context, id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Update writes the set fields of a user
	Update(ctx context.Context, id uint64, fields UserFields) error
}

// UserFields is a partial user. Nil fields are left untouched.
type UserFields struct {
	DisplayName  *string
	FirstName    *string
	LastName     *string
	Bio          *string
	AvatarURL    *string
	PasswordHash *string
}
