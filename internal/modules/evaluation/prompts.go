package evaluation

import (
	"fmt"
	"regexp"
	"strings"
)

// Fence around candidate text. Both markers are stripped from anything the
// candidate wrote so the block can only be closed by writeSubmission.
const (
	SubmissionBegin = "BEGIN CANDIDATE SUBMISSION"
	SubmissionEnd   = "END CANDIDATE SUBMISSION"
)

var fenceMarker = regexp.MustCompile(`(?i)\b(begin|end)[\s_-]*candidate[\s_-]*submission\b`)

const fenceMarkerReplacement = "[submission marker removed]"

// TaskContext is the scenario the submission answers.
type TaskContext struct {
	Scenario string
	Prompts  []string
}

// Submission is the candidate's written design plus an optional diagram.
type Submission struct {
	Assumptions      string
	Architecture     string
	TradeOffs        string
	FailureScenarios string
	Image            *Image
}

func writeTask(b *strings.Builder, task TaskContext) {
	scenario := strings.TrimSpace(task.Scenario)
	if scenario == "" {
		scenario = "(no scenario provided)"
	}
	b.WriteString("TASK SCENARIO:\n")
	b.WriteString(scenario)
	b.WriteString("\n\n")
	if len(task.Prompts) > 0 {
		b.WriteString("GUIDING QUESTIONS:\n")
		for _, p := range task.Prompts {
			if p = strings.TrimSpace(p); p != "" {
				fmt.Fprintf(b, "- %s\n", p)
			}
		}
		b.WriteString("\n")
	}
}

func writeSubmission(b *strings.Builder, sub Submission) {
	b.WriteString(SubmissionBegin + "\n")
	fmt.Fprintf(b, "[Assumptions]\n%s\n\n", fenced(sub.Assumptions))
	fmt.Fprintf(b, "[Architecture]\n%s\n\n", fenced(sub.Architecture))
	fmt.Fprintf(b, "[Trade-offs]\n%s\n\n", fenced(sub.TradeOffs))
	fmt.Fprintf(b, "[Failure scenarios]\n%s\n", fenced(sub.FailureScenarios))
	b.WriteString(SubmissionEnd + "\n\n")
	if sub.Image != nil {
		b.WriteString("An architecture diagram is attached. Treat it as the primary visual source of truth and cross-check it against the written architecture.\n\n")
	}
}

func fenced(s string) string {
	return fenceMarker.ReplaceAllString(orNone(s), fenceMarkerReplacement)
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "(left blank)"
	}
	return s
}

func architecturePrompt(task TaskContext, sub Submission) string {
	var b strings.Builder
	b.WriteString("ROLE: You are a principal software architect reviewing a candidate's system design.\n\n")
	writeTask(&b, task)
	writeSubmission(&b, sub)
	b.WriteString(`Assess, in concise prose:
1. Whether the chosen design patterns fit the problem, naming any that are misapplied.
2. Whether this is the minimum viable complexity or where it is over or under engineered.
3. Logical cohesion: does the architecture actually follow from the stated assumptions?
Cite specific parts of the submission. Do not propose a complete solution. Do not assign numeric scores.
`)
	return b.String()
}

func reliabilityPrompt(task TaskContext, sub Submission) string {
	var b strings.Builder
	b.WriteString("ROLE: You are a senior site reliability and security engineer auditing a candidate's system design.\n\n")
	writeTask(&b, task)
	writeSubmission(&b, sub)
	b.WriteString(`Audit, in concise prose:
1. Single points of failure and how the design survives them.
2. Data integrity risks: loss, duplication, ordering, consistency.
3. Whether the stated resilience measures are realistic.
4. How the design behaves under 10x the expected load.
Cite specific parts of the submission. Do not propose a complete solution. Do not assign numeric scores.
`)
	return b.String()
}

func synthesisPrompt(task TaskContext, sub Submission, architecture, reliability string) string {
	var b strings.Builder
	b.WriteString("ROLE: You are an experienced engineering mentor. Two reviewers have assessed a candidate's design; combine their findings into one piece of feedback and a score.\n\n")
	writeTask(&b, task)
	writeSubmission(&b, sub)
	// Reviews quote the submission, so they get the same stripping.
	fmt.Fprintf(&b, "ARCHITECTURE REVIEW:\n%s\n\n", fenced(architecture))
	fmt.Fprintf(&b, "RELIABILITY AND SECURITY AUDIT:\n%s\n\n", fenced(reliability))
	b.WriteString(`Write feedback in a mentor's voice: encouraging but rigorous, naming what was done well and what to improve, ending with 2-3 follow-up questions. Do not provide a complete solution.
If a review above reads "` + AgentUnavailable + `", rely on your own reading of the submission for that area.

Score each dimension from 0 to 10 (0-3 needs significant improvement, 4-6 developing, 7-8 good, 9-10 excellent):
- clarity: are the thoughts well structured and easy to follow?
- constraints_awareness: were requirements, limits and context considered?
- trade_off_reasoning: were the pros and cons of alternatives analysed?
- failure_anticipation: did they think about what could go wrong?
- simplicity: is the design as simple as the problem allows?

Respond with ONLY a JSON object in exactly this shape:
{"feedback": "<markdown feedback>", "scores": {"clarity": 7.5, "constraints_awareness": 8.0, "trade_off_reasoning": 6.5, "failure_anticipation": 7.0, "simplicity": 8.5}}
`)
	return b.String()
}
