package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var Roles = []string{
	"Backend Engineer",
	"Frontend Engineer",
	"Fullstack Engineer",
	"Systems Engineer",
	"Data Engineer",
	"DevOps Engineer",
	"Security Engineer",
}

var Difficulties = []string{"beginner", "intermediate", "advanced"}

const (
	TaskSourceManual = "manual"
	TaskSourceAI     = "ai"
	TaskSourceSeed   = "seed"
)

// Task is a shared, read-only scenario template.
type Task struct {
	ID                   uuid.UUID                  `gorm:"type:char(36);primaryKey" json:"id"`
	Title                string                     `gorm:"size:255;not null;index:idx_tasks_role_difficulty_title,priority:3" json:"title"`
	Description          string                     `gorm:"type:text;not null" json:"description"`
	Role                 string                     `gorm:"size:64;not null;index:idx_tasks_role_difficulty_title,priority:1" json:"role"`
	Difficulty           string                     `gorm:"size:32;not null;index:idx_tasks_role_difficulty_title,priority:2" json:"difficulty"`
	EstimatedTimeMinutes int                        `gorm:"not null;default:45" json:"estimated_time_minutes"`
	Scenario             string                     `gorm:"type:text;not null" json:"scenario"`
	Prompts              datatypes.JSONSlice[string] `json:"prompts"`
	Source               string                     `gorm:"size:16;not null;default:manual" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

func ValidRole(role string) bool { return contains(Roles, role) }

func ValidDifficulty(d string) bool { return contains(Difficulties, d) }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
