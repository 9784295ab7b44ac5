// Seeds the treasury account plus a demo creator and fans. Run once
// after the first migration; every step is idempotent.
package main

import (
	"log"

	"stagepay/internal/config"
	"stagepay/internal/models"
	"stagepay/internal/repositories"
	"stagepay/internal/services/wallet"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err != nil {
				log.Printf("⚠️ Failed to get SQL DB instance: %v", err)
			} else if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	treasuryBalance := config.GetInt64Env("TREASURY_SEED_CENTS", 100_000_000_00)
	treasury := seedUser("treasury@stagepay.local", "treasury", "Treasury", models.RoleAdmin)
	seedWallet(treasury.ID, treasuryBalance)
	log.Printf("Treasury user id: %d (set TREASURY_USER_ID to this value)", treasury.ID)

	creator := seedUser("creator@stagepay.local", "changeme1", "Demo Creator", models.RoleCreator)
	seedWallet(creator.ID, 0)

	for _, email := range []string{"fan1@stagepay.local", "fan2@stagepay.local"} {
		fan := seedUser(email, "changeme1", "Demo Fan", models.RoleFan)
		seedWallet(fan.ID, 50_00)
	}

	log.Println("✅ Seed complete")
}

func seedUser(email, password, displayName, role string) *models.User {
	var existing models.User
	if err := repositories.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return &existing
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	user := models.User{
		Email:        email,
		Password:     string(hashed),
		DisplayName:  displayName,
		Role:         role,
		TokenVersion: 1,
	}
	if err := repositories.DB.Create(&user).Error; err != nil {
		log.Fatalf("Failed to create user %s: %v", email, err)
	}
	return &user
}

func seedWallet(userID uint, balanceCents int64) {
	var existing models.Wallet
	if err := repositories.DB.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		return
	}

	w := models.Wallet{
		UserID:                userID,
		AvailableBalanceCents: balanceCents,
		TotalBalanceCents:     balanceCents,
		Currency:              wallet.DefaultCurrency,
		Status:                models.WalletStatusActive,
	}
	if err := repositories.DB.Create(&w).Error; err != nil {
		log.Fatalf("Failed to create wallet for user %d: %v", userID, err)
	}
}
