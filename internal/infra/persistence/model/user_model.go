// Package model holds the GORM models that mirror the database tables.
package model

import (
	"time"
)

// UserModel mirrors the 'users' table. The primary key is the identity subject, not a generated UUID.
type UserModel struct {
	ID        string `gorm:"type:varchar(128);primaryKey"`
	Email     string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name      string `gorm:"type:varchar(100)"`
	AvatarURL string `gorm:"type:text"`
	Disabled  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Role            *UserRoleModel        `gorm:"foreignKey:UserID"`
	Authentications []AuthenticationModel `gorm:"foreignKey:UserID"`
	RefreshTokens   []RefreshTokenModel   `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// UserRoleModel mirrors the 'user_roles' table, the session store's copy of each role.
type UserRoleModel struct {
	UserID    string `gorm:"type:varchar(128);primaryKey"`
	Role      string `gorm:"type:varchar(32);not null"`
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserRoleModel) TableName() string {
	return "user_roles"
}
