package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskAssignment struct {
	TaskID    uint64         `gorm:"primarykey;autoIncrement:false" json:"task_id"`
	UserID    uint64         `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type TaskWatcher struct {
	TaskID    uint64    `gorm:"primarykey;autoIncrement:false" json:"task_id"`
	UserID    uint64    `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
