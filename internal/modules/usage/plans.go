package usage

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/cortex-backend/internal/domain"
)

const Unlimited = -1

const (
	WindowLifetime = "lifetime"
	WindowDay      = "day"
)

//go:embed plans.yaml
var defaultPlansYAML []byte

type Quota struct {
	Limit   int    `yaml:"limit"`
	Window  string `yaml:"window"`
	Message string `yaml:"message"`
}

func (q Quota) Unlimited() bool { return q.Limit < 0 }

type Plan struct {
	Tasks  Quota `yaml:"tasks"`
	Drills Quota `yaml:"drills"`
}

// PlanTable maps plan name to its quotas.
type PlanTable map[string]Plan

func (t PlanTable) Get(name string) Plan {
	if p, ok := t[name]; ok {
		return p
	}
	return t[domain.PlanFree]
}

// EmbeddedPlans parses the table shipped with the binary.
func EmbeddedPlans() (PlanTable, error) {
	return ParsePlans(defaultPlansYAML)
}

// DefaultPlans is EmbeddedPlans for callers that treat a malformed table as a
// build defect.
func DefaultPlans() PlanTable {
	t, err := EmbeddedPlans()
	if err != nil {
		panic(err)
	}
	return t
}

func ParsePlans(raw []byte) (PlanTable, error) {
	var doc struct {
		Plans map[string]Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plan table: %w", err)
	}
	for _, name := range []string{domain.PlanFree, domain.PlanPro} {
		if _, ok := doc.Plans[name]; !ok {
			return nil, fmt.Errorf("plan table missing %q", name)
		}
	}
	for name, p := range doc.Plans {
		for kind, q := range map[string]Quota{"tasks": p.Tasks, "drills": p.Drills} {
			if q.Unlimited() {
				continue
			}
			if q.Window != WindowLifetime && q.Window != WindowDay {
				return nil, fmt.Errorf("plan %q %s: unknown window %q", name, kind, q.Window)
			}
			if q.Message == "" {
				return nil, fmt.Errorf("plan %q %s: limited quota needs a message", name, kind)
			}
		}
	}
	return PlanTable(doc.Plans), nil
}
