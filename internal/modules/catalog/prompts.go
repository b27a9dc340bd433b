package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/domain/training"
)

const softwareOnly = `This MUST be about SOFTWARE ENGINEERING ONLY. Focus on web applications and APIs, distributed systems, databases and caching, frontend architecture and performance, data pipelines, and cloud infrastructure.
Do NOT use scenarios about hardware, embedded systems, IoT, medical devices, industrial equipment or physical products.`

func taskPrompt(role, difficulty string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a realistic SOFTWARE ENGINEERING design task for a %s at %s difficulty level.\n\n", role, difficulty)
	b.WriteString(softwareOnly)
	b.WriteString("\n\nReturn ONLY a JSON object with this exact structure:\n")
	b.WriteString(`{
  "title": "Clear, concise task title",
  "description": "Task description (3-4 sentences)",
  "estimated_time_minutes": 45,
  "scenario": "Scenario with background, scale numbers and constraints (3-4 sentences)",
  "prompts": ["Question about assumptions", "Question about approach", "Question about tradeoffs", "Question about edge cases"]
}`)
	b.WriteString("\n\nGood examples: \"Design a rate limiting system for a REST API\", \"Optimize a React dashboard with 10,000 rows\", \"Design a real-time analytics pipeline for clickstream data\".\n")
	b.WriteString("Make it practical and thought-provoking.")
	return b.String()
}

var drillDescriptions = map[string]string{
	training.DrillSpotAssumptions: "Identify hidden assumptions in a software engineering scenario",
	training.DrillRankFailures:    "Rank potential failure modes in a web or cloud system by severity and likelihood",
	training.DrillPredictScaling:  "Predict the first scaling bottleneck in a software system",
	training.DrillChooseTradeoffs: "Choose the best tradeoff for a software engineering constraint",
}

func drillPrompt(drillType string) string {
	desc, ok := drillDescriptions[drillType]
	if !ok {
		desc = drillType
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a multiple-choice thinking drill for software engineers: %s.\n\n", desc)
	b.WriteString(softwareOnly)
	b.WriteString("\n\nReturn ONLY a JSON object with this exact structure:\n")
	b.WriteString(`{
  "title": "Brief drill title",
  "question": "Clear question or scenario (2-3 sentences)",
  "options": ["first option", "second option", "third option", "fourth option"],
  "correct_answer": "must equal one of the options exactly",
  "explanation": "Why the answer is correct and the others are not (3-4 sentences)"
}`)
	b.WriteString("\n\nMake it realistic, educational, and challenging but fair.")
	return b.String()
}

func fallbackTask(role, difficulty string) *domain.Task {
	return &domain.Task{
		ID:                   uuid.New(),
		Title:                fmt.Sprintf("System Design Challenge for %s", role),
		Description:          fmt.Sprintf("Design a scalable solution for a %s level challenge relevant to %s.", difficulty, role),
		Role:                 role,
		Difficulty:           difficulty,
		EstimatedTimeMinutes: 45,
		Scenario:             "You need to design a system that handles high traffic and provides reliable service. Consider scalability, reliability, and maintainability in your design.",
		Prompts: []string{
			"What are your key assumptions?",
			"How would you architect this system?",
			"What are the main tradeoffs?",
			"What failure scenarios should you consider?",
		},
		Source: training.TaskSourceAI,
	}
}

func fallbackDrill(drillType string) *domain.Drill {
	return &domain.Drill{
		ID:            uuid.New(),
		Title:         "Engineering Thinking Challenge",
		DrillType:     drillType,
		Question:      "Evaluate the given engineering scenario and select the best option.",
		Options:       []string{"Option A", "Option B", "Option C", "Option D"},
		CorrectAnswer: "Option A",
		Explanation:   "This option best addresses the constraints and requirements.",
	}
}
