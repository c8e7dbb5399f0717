package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/constants"
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
	"github.com/yukikurage/project-board-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound            = errors.New("project not found")
	ErrInvalidProjectName         = errors.New("project name cannot be empty")
	ErrProjectArchived            = errors.New("project is archived")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrAlreadyProjectMember       = errors.New("user is already a member of this project")
	ErrNotProjectMember           = errors.New("user is not a member of the project")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the project")
	ErrCannotRemoveOwner          = errors.New("the project owner cannot be removed")
	ErrProjectMemberNotFound      = errors.New("project member not found")
)

// ProjectService provides business logic for project operations.
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	CoverImage  *string
	OwnerID     uint64
}

// CreateProject creates a project owned by the caller with the default board columns.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProjectName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      models.ProjectStatusActive,
		CoverImage:  input.CoverImage,
		OwnerID:     input.OwnerID,
		InviteCode:  inviteCode,
	}

	positions := board.Renumbered(len(constants.DefaultColumnNames))
	columns := make([]models.Column, len(constants.DefaultColumnNames))
	for i, columnName := range constants.DefaultColumnNames {
		columns[i] = models.Column{Name: columnName, Position: positions[i]}
	}

	if err := s.projectRepo.Create(ctx, project, columns); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// ListProjectsForUser returns the memberships of a user with their projects.
func (s *ProjectService) ListProjectsForUser(ctx context.Context, userID uint64) ([]models.ProjectMember, error) {
	memberships, err := s.projectRepo.ListMembersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return memberships, nil
}

// GetProject returns a project.
func (s *ProjectService) GetProject(ctx context.Context, projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// GetProjectWithMembers returns a project and all of its members.
func (s *ProjectService) GetProjectWithMembers(ctx context.Context, projectID uint64) (*models.Project, []models.ProjectMember, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.projectRepo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list project members: %w", err)
	}

	return project, members, nil
}

// GetMembership returns the caller's membership or ErrNotProjectMember.
func (s *ProjectService) GetMembership(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error) {
	member, err := s.projectRepo.FindMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotProjectMember
		}
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	return member, nil
}

// UpdateProjectInput holds the editable project fields. Nil fields are kept.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	CoverImage  *string
	ClearCover  bool
}

// UpdateProject updates the name, description or cover of an active project.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusArchived {
		return nil, ErrProjectArchived
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.ClearCover {
		project.CoverImage = nil
	} else if input.CoverImage != nil {
		project.CoverImage = input.CoverImage
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// SetArchived archives or restores a project.
func (s *ProjectService) SetArchived(ctx context.Context, projectID uint64, archived bool) (*models.Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	project.Status = models.ProjectStatusActive
	if archived {
		project.Status = models.ProjectStatusArchived
	}
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project status: %w", err)
	}
	return project, nil
}

// JoinProjectByInvite adds a user to a project as a contributor via invite code.
func (s *ProjectService) JoinProjectByInvite(ctx context.Context, userID uint64, inviteCode string) (*models.Project, error) {
	project, err := s.projectRepo.FindByInviteCode(ctx, strings.TrimSpace(inviteCode))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find project by invite code: %w", err)
	}
	if project.Status == models.ProjectStatusArchived {
		return nil, ErrProjectArchived
	}

	if _, err := s.projectRepo.FindMember(ctx, project.ID, userID); err == nil {
		return nil, ErrAlreadyProjectMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      models.RoleContributor,
		JoinedAt:  timeNow(),
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member to project: %w", err)
	}

	return project, nil
}

// RegenerateInviteCode generates a new invite code for the project.
func (s *ProjectService) RegenerateInviteCode(ctx context.Context, projectID uint64) (*models.Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	project.InviteCode = code
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return project, nil
}

// RemoveMember removes a contributor from the project.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, actorID, targetID uint64) error {
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	member, err := s.projectRepo.FindMember(ctx, projectID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectMemberNotFound
		}
		return fmt.Errorf("failed to find project member: %w", err)
	}
	if member.Role == models.RoleOwner {
		return ErrCannotRemoveOwner
	}

	if err := s.projectRepo.RemoveMember(ctx, projectID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}
