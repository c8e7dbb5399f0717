package repository

import (
	"context"

	"gorm.io/gorm"
)

// updateByID writes values to the row with the given ID. It returns
// gorm.ErrRecordNotFound only when no such row exists: MySQL reports changed
// rows, so writing a row's current values affects none.
func updateByID(ctx context.Context, db *gorm.DB, model any, id uint64, values map[string]any) error {
	result := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
