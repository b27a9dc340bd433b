package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DrillSpotAssumptions = "spot_assumptions"
	DrillRankFailures    = "rank_failures"
	DrillPredictScaling  = "predict_scaling"
	DrillChooseTradeoffs = "choose_tradeoffs"
)

var DrillTypes = []string{DrillSpotAssumptions, DrillRankFailures, DrillPredictScaling, DrillChooseTradeoffs}

func ValidDrillType(t string) bool { return contains(DrillTypes, t) }

type Drill struct {
	ID            uuid.UUID                  `gorm:"type:char(36);primaryKey" json:"id"`
	Title         string                     `gorm:"size:255;not null" json:"title"`
	DrillType     string                     `gorm:"size:32;not null;index" json:"drill_type"`
	Question      string                     `gorm:"type:text;not null" json:"question"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                     `gorm:"type:text;not null" json:"-"`
	Explanation   string                     `gorm:"type:text;not null" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Drill) TableName() string { return "drills" }

// DrillSubmission is append-only. DrillType is copied from the drill so stats
// do not need a join.
type DrillSubmission struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:char(36);not null;index:idx_drill_submissions_user_submitted,priority:1" json:"user_id"`
	DrillID     uuid.UUID `gorm:"type:char(36);not null;index" json:"drill_id"`
	DrillType   string    `gorm:"size:32;not null" json:"drill_type"`
	UserAnswer  string    `gorm:"type:text;not null" json:"user_answer"`
	IsCorrect   bool      `gorm:"not null" json:"is_correct"`
	SubmittedAt time.Time `gorm:"not null;index:idx_drill_submissions_user_submitted,priority:2" json:"submitted_at"`
}

func (DrillSubmission) TableName() string { return "drill_submissions" }
