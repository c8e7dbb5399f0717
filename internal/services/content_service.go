package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrLinkNotFound = errors.New("link not found")
	ErrInvalidURL   = errors.New("url must be an absolute http or https address")
)

// ContentService manages a project's notes and links.
type ContentService struct {
	noteRepo repository.NoteRepository
	linkRepo repository.LinkRepository
}

// NewContentService creates a new ContentService.
func NewContentService(noteRepo repository.NoteRepository, linkRepo repository.LinkRepository) *ContentService {
	return &ContentService{noteRepo: noteRepo, linkRepo: linkRepo}
}

// NoteInput holds note fields. On update nil fields are kept.
type NoteInput struct {
	Title   *string
	Content *string
}

func (s *ContentService) ListNotes(ctx context.Context, projectID uint64, offset, limit int) ([]models.Note, int64, error) {
	notes, total, err := s.noteRepo.List(ctx, projectID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, total, nil
}

func (s *ContentService) CreateNote(ctx context.Context, projectID, creatorID uint64, input NoteInput) (*models.Note, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}
	note := &models.Note{
		ProjectID: projectID,
		Title:     strings.TrimSpace(*input.Title),
		CreatorID: creatorID,
	}
	if input.Content != nil {
		note.Content = *input.Content
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (s *ContentService) UpdateNote(ctx context.Context, projectID, noteID uint64, input NoteInput) (*models.Note, error) {
	note, err := s.findNote(ctx, projectID, noteID)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		note.Title = title
	}
	if input.Content != nil {
		note.Content = *input.Content
	}
	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

func (s *ContentService) DeleteNote(ctx context.Context, projectID, noteID uint64) error {
	if _, err := s.findNote(ctx, projectID, noteID); err != nil {
		return err
	}
	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (s *ContentService) findNote(ctx context.Context, projectID, noteID uint64) (*models.Note, error) {
	note, err := s.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	if note.ProjectID != projectID {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// LinkInput holds link fields. On update nil fields are kept.
type LinkInput struct {
	Title       *string
	URL         *string
	Description *string
}

func (s *ContentService) ListLinks(ctx context.Context, projectID uint64, offset, limit int) ([]models.Link, int64, error) {
	links, total, err := s.linkRepo.List(ctx, projectID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list links: %w", err)
	}
	return links, total, nil
}

func (s *ContentService) CreateLink(ctx context.Context, projectID, creatorID uint64, input LinkInput) (*models.Link, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.URL == nil {
		return nil, ErrInvalidURL
	}
	address, err := normalizeURL(*input.URL)
	if err != nil {
		return nil, err
	}
	link := &models.Link{
		ProjectID: projectID,
		Title:     strings.TrimSpace(*input.Title),
		URL:       address,
		CreatorID: creatorID,
	}
	if input.Description != nil {
		link.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	return link, nil
}

func (s *ContentService) UpdateLink(ctx context.Context, projectID, linkID uint64, input LinkInput) (*models.Link, error) {
	link, err := s.findLink(ctx, projectID, linkID)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		link.Title = title
	}
	if input.URL != nil {
		address, err := normalizeURL(*input.URL)
		if err != nil {
			return nil, err
		}
		link.URL = address
	}
	if input.Description != nil {
		link.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.linkRepo.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	return link, nil
}

func (s *ContentService) DeleteLink(ctx context.Context, projectID, linkID uint64) error {
	if _, err := s.findLink(ctx, projectID, linkID); err != nil {
		return err
	}
	if err := s.linkRepo.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

func (s *ContentService) findLink(ctx context.Context, projectID, linkID uint64) (*models.Link, error) {
	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	if link.ProjectID != projectID {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	return u.String(), nil
}
