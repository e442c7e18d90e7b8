package models

import "time"

type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Username    string `gorm:"uniqueIndex;not null"`
	Password    string `gorm:"not null"`
	DisplayName string `gorm:"not null"`
	IsActive    bool   `gorm:"default:true"`
	LastLogin   *time.Time
	CreatedAt   *time.Time `gorm:"autoCreateTime"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime"`
}
