// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"marketplace-chat/internal/domain/application"
	"marketplace-chat/internal/domain/message"
	"marketplace-chat/internal/domain/user"
	"marketplace-chat/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the chat schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.InitSchema(db))
	return db
}

// Conversation is a seeded two-party thread.
type Conversation struct {
	ClientUser     user.User
	FreelancerUser user.User
	Application    application.Application
	Task           application.Task
}

func (c Conversation) ID() uint {
	return c.Application.ID
}

func (c Conversation) Participants() application.Participants {
	return application.Participants{
		ConversationID:   c.Application.ID,
		ClientUserID:     c.ClientUser.ID,
		FreelancerUserID: c.FreelancerUser.ID,
		Title:            c.Task.Title,
		Status:           c.Application.Status,
	}
}

// SeedConversation creates a client, a freelancer, a task and the
// application linking them.
func SeedConversation(t *testing.T, db *gorm.DB, title string) Conversation {
	t.Helper()

	suffix := uuid.NewString()[:8]
	c := Conversation{
		ClientUser:     user.User{Email: "client-" + suffix + "@example.com", Name: "Client " + suffix},
		FreelancerUser: user.User{Email: "freelancer-" + suffix + "@example.com", Name: "Freelancer " + suffix},
	}
	require.NoError(t, db.Create(&c.ClientUser).Error)
	require.NoError(t, db.Create(&c.FreelancerUser).Error)

	client := user.Client{UserID: c.ClientUser.ID, Name: c.ClientUser.Name}
	require.NoError(t, db.Create(&client).Error)
	freelancer := user.Freelancer{UserID: c.FreelancerUser.ID, FirstName: "Free", LastName: suffix}
	require.NoError(t, db.Create(&freelancer).Error)

	c.Task = application.Task{ClientID: client.ID, Title: title}
	require.NoError(t, db.Create(&c.Task).Error)

	c.Application = application.Application{
		TaskID:       c.Task.ID,
		ClientID:     client.ID,
		FreelancerID: freelancer.ID,
		Status:       application.StatusAccepted,
	}
	require.NoError(t, db.Create(&c.Application).Error)
	return c
}

// SeedUser creates a user with no marketplace profile.
func SeedUser(t *testing.T, db *gorm.DB, name string) user.User {
	t.Helper()
	u := user.User{Email: name + "-" + uuid.NewString()[:8] + "@example.com", Name: name}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// SeedFile creates an uploaded file owned by uploaderID.
func SeedFile(t *testing.T, db *gorm.DB, uploaderID uint, name string) message.File {
	t.Helper()
	f := message.File{FileName: name, Type: "image/png", UploadedBy: uploaderID}
	require.NoError(t, db.Create(&f).Error)
	return f
}

// ReloadApplication fetches the current application row.
func ReloadApplication(t *testing.T, db *gorm.DB, id uint) application.Application {
	t.Helper()
	var a application.Application
	require.NoError(t, db.First(&a, id).Error)
	return a
}
