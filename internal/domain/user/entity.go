package user

import "time"

// Role is the marketplace side a user is acting as.
type Role int

const (
	RoleFreelancer Role = 1
	RoleClient     Role = 2
)

func (r Role) Valid() bool {
	return r == RoleFreelancer || r == RoleClient
}

// User represents the users table. Presence is deliberately kept out of it.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client is the client-side profile of a user.
type Client struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"userId"`
	Name      string `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Freelancer is the freelancer-side profile of a user.
type Freelancer struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"userId"`
	FirstName string `gorm:"type:varchar(255)" json:"firstName"`
	LastName  string `gorm:"type:varchar(255)" json:"lastName"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Presence is the per-user online flag and the connection handle used for
// direct pushes. Online is true exactly when ConnectionID is set.
type Presence struct {
	UserID       uint    `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Online       bool    `gorm:"not null;default:false" json:"online"`
	ConnectionID *string `gorm:"type:varchar(64);index" json:"-"`
	UpdatedAt    time.Time
}

func (Presence) TableName() string {
	return "presences"
}

// Reachable reports whether a direct push can be attempted.
func (p Presence) Reachable() bool {
	return p.Online && p.ConnectionID != nil && *p.ConnectionID != ""
}
