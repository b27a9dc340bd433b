package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

type ActivityEntry struct {
	Date           string  `json:"date"`
	TasksCompleted int     `json:"tasks_completed"`
	ScoreEarned    float64 `json:"score_earned"`
}

// Progress is the per-user rolling aggregate. ActivityHistory holds at most one
// entry per UTC calendar day, ordered by date.
type Progress struct {
	ID                  uuid.UUID                         `gorm:"type:char(36);primaryKey" json:"-"`
	UserID              uuid.UUID                         `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	TotalTasksCompleted int                               `gorm:"not null;default:0" json:"total_tasks_completed"`
	CurrentStreak       int                               `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak       int                               `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate    *time.Time                        `json:"last_activity_date"`
	TotalScore          float64                           `gorm:"not null;default:0" json:"total_score"`
	AverageScore        float64                           `gorm:"not null;default:0" json:"average_score"`
	ActivityHistory     datatypes.JSONSlice[ActivityEntry] `json:"activity_history"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Progress) TableName() string { return "progress" }

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
