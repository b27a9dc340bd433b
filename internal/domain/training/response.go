package training

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type ResponseState string

const (
	StateGradedLocked   ResponseState = "graded_locked"
	StateGradedUnlocked ResponseState = "graded_unlocked"
)

// ScoreBreakdown is the five-dimension evaluation vector, each in [0,10].
type ScoreBreakdown struct {
	Clarity              float64 `gorm:"column:clarity;not null;default:0" json:"clarity"`
	ConstraintsAwareness float64 `gorm:"column:constraints_awareness;not null;default:0" json:"constraints_awareness"`
	TradeOffReasoning    float64 `gorm:"column:trade_off_reasoning;not null;default:0" json:"trade_off_reasoning"`
	FailureAnticipation  float64 `gorm:"column:failure_anticipation;not null;default:0" json:"failure_anticipation"`
	Simplicity           float64 `gorm:"column:simplicity;not null;default:0" json:"simplicity"`
}

func (s ScoreBreakdown) Values() []float64 {
	return []float64{s.Clarity, s.ConstraintsAwareness, s.TradeOffReasoning, s.FailureAnticipation, s.Simplicity}
}

// Mean is the arithmetic mean of the five dimensions rounded to two decimals.
func (s ScoreBreakdown) Mean() float64 {
	sum := 0.0
	vals := s.Values()
	for _, v := range vals {
		sum += v
	}
	return Round2(sum / float64(len(vals)))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Response is a graded submission. AIFeedback and AIUnlockedAt are written
// together, once. The critique columns keep the submit-time agent reviews so
// unlocking feedback only reruns synthesis; they are never served.
type Response struct {
	ID                   uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:char(36);not null;index:idx_responses_user_submitted,priority:1" json:"user_id"`
	TaskID               uuid.UUID      `gorm:"type:char(36);not null;index" json:"task_id"`
	Assumptions          string         `gorm:"type:text;not null" json:"assumptions"`
	Architecture         string         `gorm:"type:text;not null" json:"architecture"`
	ArchitectureData     *string        `gorm:"type:text" json:"architecture_data,omitempty"`
	ArchitectureImage    *string        `gorm:"type:text" json:"architecture_image,omitempty"`
	TradeOffs            string         `gorm:"type:text;not null" json:"trade_offs"`
	FailureScenarios     string         `gorm:"type:text;not null" json:"failure_scenarios"`
	SubmittedAt          time.Time      `gorm:"not null;index:idx_responses_user_submitted,priority:2" json:"submitted_at"`
	Score                float64        `gorm:"not null" json:"score"`
	ScoreBreakdown       ScoreBreakdown `gorm:"embedded;embeddedPrefix:score_" json:"score_breakdown"`
	AIFeedback           *string        `gorm:"type:text" json:"ai_feedback"`
	AIUnlockedAt         *time.Time     `json:"ai_unlocked_at"`
	ArchitectureCritique *string        `gorm:"type:text" json:"-"`
	ReliabilityCritique  *string        `gorm:"type:text" json:"-"`
}

func (Response) TableName() string { return "responses" }

func (r *Response) State() ResponseState {
	if r.AIFeedback != nil {
		return StateGradedUnlocked
	}
	return StateGradedLocked
}
