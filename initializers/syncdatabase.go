package initializers

import (
	"gorm.io/gorm"

	"github.com/SimonShangpliang/cfl-iitg/internals/models"
)

// SyncDatabase synchronizes database tables with the models.
func SyncDatabase(db *gorm.DB) error {
	return db.AutoMigrate(&models.UserProfile{}, &models.Book{})
}
