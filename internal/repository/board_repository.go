package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yukikurage/project-board-api/internal/database"
	"github.com/yukikurage/project-board-api/internal/models"
	"gorm.io/gorm"
)

// GormBoardRepository is a GORM implementation of BoardRepository
type GormBoardRepository struct {
	db *gorm.DB
}

// NewBoardRepository creates a new BoardRepository
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &GormBoardRepository{db: db}
}

// ListColumns returns a project's columns ordered by position
func (r *GormBoardRepository) ListColumns(ctx context.Context, projectID uint64) ([]models.Column, error) {
	var columns []models.Column
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC, id ASC").
		Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

// ListCards returns a column's cards ordered by position
func (r *GormBoardRepository) ListCards(ctx context.Context, columnID uint64) ([]models.Card, error) {
	var cards []models.Card
	if err := r.db.WithContext(ctx).
		Where("column_id = ?", columnID).
		Order("position ASC, id ASC").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// UpdateCard writes the set fields of a single card
func (r *GormBoardRepository) UpdateCard(ctx context.Context, cardID uint64, fields CardFields) error {
	values, err := fields.values()
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	return updateByID(ctx, r.db, &models.Card{}, cardID, values)
}

// UpdateCardsBatch issues one update per card. Earlier writes are kept when a
// later one fails.
func (r *GormBoardRepository) UpdateCardsBatch(ctx context.Context, updates []CardUpdate) error {
	for _, u := range updates {
		if err := r.UpdateCard(ctx, u.CardID, u.Fields); err != nil {
			return fmt.Errorf("card %d: %w", u.CardID, err)
		}
	}
	return nil
}

// CreateColumn inserts a column
func (r *GormBoardRepository) CreateColumn(ctx context.Context, column *models.Column) error {
	return r.db.WithContext(ctx).Create(column).Error
}

// FindColumn finds a column by ID
func (r *GormBoardRepository) FindColumn(ctx context.Context, id uint64) (*models.Column, error) {
	var column models.Column
	if err := r.db.WithContext(ctx).First(&column, id).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

// UpdateColumn writes the set fields of a column
func (r *GormBoardRepository) UpdateColumn(ctx context.Context, id uint64, fields ColumnFields) error {
	values := map[string]any{}
	if fields.Name != nil {
		values["name"] = *fields.Name
	}
	if fields.Position != nil {
		values["position"] = *fields.Position
	}
	if len(values) == 0 {
		return nil
	}

	return updateByID(ctx, r.db, &models.Column{}, id, values)
}

// DeleteColumn soft deletes a column
func (r *GormBoardRepository) DeleteColumn(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Column{}, id).Error
}

// CountCards counts the cards in a column
func (r *GormBoardRepository) CountCards(ctx context.Context, columnID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Card{}).Where("column_id = ?", columnID).Count(&count).Error
	return count, err
}

// CreateCard inserts a card
func (r *GormBoardRepository) CreateCard(ctx context.Context, card *models.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// FindCard finds a card by ID
func (r *GormBoardRepository) FindCard(ctx context.Context, id uint64) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard soft deletes a card
func (r *GormBoardRepository) DeleteCard(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Card{}, id).Error
}

// ListProjectCards returns every card of a project
func (r *GormBoardRepository) ListProjectCards(ctx context.Context, projectID uint64) ([]models.Card, error) {
	var cards []models.Card
	if err := r.db.WithContext(ctx).Scopes(database.InProject(projectID)).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// values converts the set fields into a column map for gorm Updates
func (f CardFields) values() (map[string]any, error) {
	values := map[string]any{}
	if f.ColumnID != nil {
		values["column_id"] = *f.ColumnID
	}
	if f.Position != nil {
		values["position"] = *f.Position
	}
	if f.Title != nil {
		values["title"] = *f.Title
	}
	if f.Description != nil {
		values["description"] = *f.Description
	}
	if f.Tags != nil {
		tags := *f.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		values["tags"] = string(encoded)
	}
	if f.Priority != nil {
		values["priority"] = string(*f.Priority)
	}
	if f.ClearAssignee {
		values["assignee_id"] = nil
	} else if f.AssigneeID != nil {
		values["assignee_id"] = *f.AssigneeID
	}
	if f.ClearDueDate {
		values["due_date"] = nil
	} else if f.DueDate != nil {
		values["due_date"] = *f.DueDate
	}
	if f.Completed != nil {
		values["completed"] = *f.Completed
		if f.CompletedAt != nil {
			values["completed_at"] = *f.CompletedAt
		} else {
			values["completed_at"] = nil
		}
	}
	if f.UpdatedAt != nil {
		values["updated_at"] = *f.UpdatedAt
	}
	return values, nil
}
