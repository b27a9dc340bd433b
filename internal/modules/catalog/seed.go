package catalog

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Tasks []struct {
		Title                string   `yaml:"title"`
		Description          string   `yaml:"description"`
		Role                 string   `yaml:"role"`
		Difficulty           string   `yaml:"difficulty"`
		EstimatedTimeMinutes int      `yaml:"estimated_time_minutes"`
		Scenario             string   `yaml:"scenario"`
		Prompts              []string `yaml:"prompts"`
	} `yaml:"tasks"`
	Drills []struct {
		Title         string   `yaml:"title"`
		DrillType     string   `yaml:"drill_type"`
		Question      string   `yaml:"question"`
		Options       []string `yaml:"options"`
		CorrectAnswer string   `yaml:"correct_answer"`
		Explanation   string   `yaml:"explanation"`
	} `yaml:"drills"`
}

type SeedReport struct {
	Tasks  int `json:"tasks"`
	Drills int `json:"drills"`
}

// Seed inserts the bundled sample tasks and drills. Entries whose title
// already exists are left alone, so running it twice is a no-op.
func (u Usecases) Seed(ctx context.Context) (*SeedReport, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	report := &SeedReport{}

	for _, st := range f.Tasks {
		exists, err := u.deps.Tasks.TitleExists(dbc, st.Role, st.Difficulty, st.Title)
		if err != nil {
			return report, err
		}
		if exists {
			continue
		}
		t, err := taskFromInput(TaskInput(st), training.TaskSourceSeed)
		if err != nil {
			return report, fmt.Errorf("seed task %q: %w", st.Title, err)
		}
		if _, err := u.insertTask(ctx, t); err != nil {
			return report, err
		}
		report.Tasks++
	}

	for _, sd := range f.Drills {
		exists, err := u.deps.Drills.TitleExists(dbc, sd.DrillType, sd.Title)
		if err != nil {
			return report, err
		}
		if exists {
			continue
		}
		d, err := drillFromInput(DrillInput(sd))
		if err != nil {
			return report, fmt.Errorf("seed drill %q: %w", sd.Title, err)
		}
		if _, err := u.insertDrill(ctx, d); err != nil {
			return report, err
		}
		report.Drills++
	}

	u.deps.Log.Info("seed finished", "tasks", report.Tasks, "drills", report.Drills)
	return report, nil
}
