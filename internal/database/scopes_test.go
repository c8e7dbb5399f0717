package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yukikurage/project-board-api/internal/models"
)

func TestScopes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zap.NewNop()))

	for i := 1; i <= 5; i++ {
		project := uint64(1)
		if i > 3 {
			project = 2
		}
		require.NoError(t, db.Create(&models.Note{ProjectID: project, Title: fmt.Sprintf("note %d", i)}).Error)
	}

	var notes []models.Note
	require.NoError(t, db.Scopes(InProject(1), Paginate(1, 5)).Order("id ASC").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, "note 2", notes[0].Title)
	assert.Equal(t, "note 3", notes[1].Title)

	var count int64
	require.NoError(t, db.Model(&models.Note{}).Scopes(InProject(2)).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
