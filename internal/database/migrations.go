package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by board ordering and calendar
// range queries.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Ordered reads of a column's cards and a project's columns
		{"cards", "idx_cards_column_position", "column_id, position"},
		{"columns", "idx_columns_project_position", "project_id, position"},

		// Calendar range queries
		{"tasks", "idx_tasks_project_date", "project_id, task_date"},

		{"project_members", "idx_project_members_user_id", "user_id"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, quoteTable(db, idx.table), idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}

// quoteTable quotes reserved table names such as "columns".
func quoteTable(db *gorm.DB, table string) string {
	var b strings.Builder
	db.Dialector.QuoteTo(&b, table)
	return b.String()
}
