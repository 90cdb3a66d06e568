package members

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/circulate/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()
	dbPath := "./test_members_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Member{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return NewRepository(db), cleanup
}

func TestRepository_Create(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("creates with full name", func(t *testing.T) {
		id, err := repo.Create(&entities.Member{FullName: "Jane Tester", Email: "jane@example.com"})
		require.NoError(t, err)
		assert.NotZero(t, id)
	})

	t.Run("derives full name from first and last", func(t *testing.T) {
		id, err := repo.Create(&entities.Member{FirstName: "  Ada ", LastName: " Lovelace "})
		require.NoError(t, err)

		member, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", member.FullName)
	})

	t.Run("derives from first name alone", func(t *testing.T) {
		id, err := repo.Create(&entities.Member{FirstName: "Prince"})
		require.NoError(t, err)

		member, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "Prince", member.FullName)
	})

	t.Run("rejects blank names", func(t *testing.T) {
		_, err := repo.Create(&entities.Member{FullName: "   ", FirstName: " ", LastName: ""})
		assert.ErrorIs(t, err, ErrNameRequired)
	})
}

func TestRepository_UpdateContact(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	id, err := repo.Create(&entities.Member{FullName: "Jane Tester"})
	require.NoError(t, err)

	t.Run("updates the contact fields", func(t *testing.T) {
		err := repo.UpdateContact(id, "Jane Q. Tester", "jane@example.com", "555-0100", "1 Library Way")
		require.NoError(t, err)

		member, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, "Jane Q. Tester", member.FullName)
		assert.Equal(t, "jane@example.com", member.Email)
		assert.Equal(t, "555-0100", member.Phone)
		assert.Equal(t, "1 Library Way", member.Address)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		err := repo.UpdateContact(id, "  ", "x@example.com", "", "")
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		err := repo.UpdateContact(9999, "Ghost", "", "", "")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRepository_GetAllAndDelete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	id1, err := repo.Create(&entities.Member{FullName: "First Member"})
	require.NoError(t, err)
	_, err = repo.Create(&entities.Member{FullName: "Second Member"})
	require.NoError(t, err)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, "Second Member", all[0].FullName)

	require.NoError(t, repo.Delete(id1))
	all, err = repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
