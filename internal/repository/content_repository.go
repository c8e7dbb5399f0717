package repository

import (
	"context"

	"github.com/yukikurage/project-board-api/internal/database"
	"github.com/yukikurage/project-board-api/internal/models"
	"gorm.io/gorm"
)

// GormNoteRepository is a GORM implementation of NoteRepository
type GormNoteRepository struct {
	db *gorm.DB
}

// NewNoteRepository creates a new NoteRepository
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &GormNoteRepository{db: db}
}

func (r *GormNoteRepository) Create(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *GormNoteRepository) FindByID(ctx context.Context, id uint64) (*models.Note, error) {
	var note models.Note
	if err := r.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns a page of notes, newest first, with the total count
func (r *GormNoteRepository) List(ctx context.Context, projectID uint64, offset, limit int) ([]models.Note, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Note{}).Scopes(database.InProject(projectID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notes []models.Note
	if err := query.Order("updated_at DESC, id DESC").Scopes(database.Paginate(offset, limit)).Find(&notes).Error; err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

func (r *GormNoteRepository) Update(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Save(note).Error
}

func (r *GormNoteRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Note{}, id).Error
}

// GormLinkRepository is a GORM implementation of LinkRepository
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new LinkRepository
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &GormLinkRepository{db: db}
}

func (r *GormLinkRepository) Create(ctx context.Context, link *models.Link) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *GormLinkRepository) FindByID(ctx context.Context, id uint64) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).First(&link, id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns a page of links, newest first, with the total count
func (r *GormLinkRepository) List(ctx context.Context, projectID uint64, offset, limit int) ([]models.Link, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Link{}).Scopes(database.InProject(projectID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.Link
	if err := query.Order("created_at DESC, id DESC").Scopes(database.Paginate(offset, limit)).Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func (r *GormLinkRepository) Update(ctx context.Context, link *models.Link) error {
	return r.db.WithContext(ctx).Save(link).Error
}

func (r *GormLinkRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Link{}, id).Error
}
