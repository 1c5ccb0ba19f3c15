package database

import (
	"fmt"
	"log"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/user"

	"gorm.io/gorm"
)

// SeedResult holds the rows created by SeedDevelopment.
type SeedResult struct {
	ClientUser     user.User
	FreelancerUser user.User
	Task           application.Task
	Application    application.Application
}

// SeedDevelopment creates one client, one freelancer and a conversation
// between them so a local socket session has something to talk in.
func SeedDevelopment(db *gorm.DB) (*SeedResult, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	result := &SeedResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		result.ClientUser = user.User{Email: "client@marketplace.local", Name: "Dev Client"}
		if err := tx.Where(user.User{Email: result.ClientUser.Email}).FirstOrCreate(&result.ClientUser).Error; err != nil {
			return fmt.Errorf("seed client user: %w", err)
		}
		result.FreelancerUser = user.User{Email: "freelancer@marketplace.local", Name: "Dev Freelancer"}
		if err := tx.Where(user.User{Email: result.FreelancerUser.Email}).FirstOrCreate(&result.FreelancerUser).Error; err != nil {
			return fmt.Errorf("seed freelancer user: %w", err)
		}

		client := user.Client{UserID: result.ClientUser.ID, Name: result.ClientUser.Name}
		if err := tx.Where(user.Client{UserID: client.UserID}).FirstOrCreate(&client).Error; err != nil {
			return fmt.Errorf("seed client profile: %w", err)
		}
		freelancer := user.Freelancer{UserID: result.FreelancerUser.ID, FirstName: "Dev", LastName: "Freelancer"}
		if err := tx.Where(user.Freelancer{UserID: freelancer.UserID}).FirstOrCreate(&freelancer).Error; err != nil {
			return fmt.Errorf("seed freelancer profile: %w", err)
		}

		result.Task = application.Task{ClientID: client.ID, Title: "Landing page redesign"}
		if err := tx.Where(application.Task{ClientID: client.ID, Title: result.Task.Title}).FirstOrCreate(&result.Task).Error; err != nil {
			return fmt.Errorf("seed task: %w", err)
		}

		result.Application = application.Application{
			TaskID:       result.Task.ID,
			ClientID:     client.ID,
			FreelancerID: freelancer.ID,
			Status:       application.StatusCreated,
		}
		if err := tx.Where(application.Application{TaskID: result.Task.ID, FreelancerID: freelancer.ID}).FirstOrCreate(&result.Application).Error; err != nil {
			return fmt.Errorf("seed application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Seeded conversation %d between users %d and %d",
		result.Application.ID, result.ClientUser.ID, result.FreelancerUser.ID)
	return result, nil
}
