package auth

import "time"

type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;unique" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
}

type User struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	Username       string    `gorm:"uniqueIndex" json:"username"`
	Password       string    `json:"password" gorm:"-"`
	HashedPassword string    `json:"-"`
	City           string    `json:"city"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	AvatarKey      string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	Session        Session   `gorm:"foreignKey:UserID" json:"-"`
}

func (Session) TableName() string { return "app_auth.sessions" }
func (User) TableName() string    { return "app_auth.users" }

// GeoComplete reports whether location onboarding finished for this user.
func (u User) GeoComplete() bool {
	return u.City != "" && u.Lat != 0 && u.Lng != 0
}
