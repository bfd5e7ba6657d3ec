package database

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"airtrack/internal/models"
)

// SeedAdminUser creates the default admin account if no users exist yet.
// The password comes from config so deployments can override it.
func SeedAdminUser(db *gorm.DB, password string) {
	var count int64
	db.Model(&models.Users{}).Count(&count)
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := models.Users{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("⚠️ Failed to seed admin user: %v", err)
		return
	}
	log.Println("✅ Seeded default admin user (remember to change the password!)")
}

// SeedIntegrationConfig guarantees the singleton config row exists so the
// admin UI always has something to edit.
func SeedIntegrationConfig(db *gorm.DB) {
	var count int64
	db.Model(&models.IntegrationConfig{}).Count(&count)
	if count > 0 {
		return
	}

	cfg := models.IntegrationConfig{
		ID:                  1,
		SyncIntervalMinutes: 60,
		AutoSyncEnabled:     true,
		Status:              models.IntegrationPaused, // Paused until a URL/key is configured
	}
	if err := db.Create(&cfg).Error; err != nil {
		log.Printf("⚠️ Failed to seed integration config: %v", err)
	}
}
