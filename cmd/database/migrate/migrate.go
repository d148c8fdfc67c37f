package migration

import (
	"Surplus-Share-Backend/entities"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";").Error; err != nil {
		return err
	}

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Errorw("error migrating user table", "error", err)
		return err
	}
	if err := db.AutoMigrate(&entities.SurplusPost{}); err != nil {
		log.Errorw("error migrating surplus post table", "error", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Claim{}); err != nil {
		log.Errorw("error migrating claim table", "error", err)
		return err
	}
	if err := db.AutoMigrate(&entities.ExpiryNotificationLog{}); err != nil {
		log.Errorw("error migrating expiry notification log table", "error", err)
		return err
	}

	// At most one ACTIVE claim per post.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_active ON claims (surplus_post_id) WHERE status = 'ACTIVE';",
	).Error; err != nil {
		log.Errorw("error creating active claim index", "error", err)
		return err
	}

	log.Info("Database migration complete")
	return nil
}
