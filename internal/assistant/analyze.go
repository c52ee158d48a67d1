package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/prompt"
	"github.com/rcliao/msg-memory/internal/provider"
)

const noSummary = "Unable to generate summary"

// Summarize condenses the latest messages of a conversation.
func (a *Assistant) Summarize(ctx context.Context, conv model.Conversation, history []model.Message) (string, error) {
	if err := a.ready(ctx); err != nil {
		return "", err
	}
	raw, err := a.generate(ctx, prompt.Summarize(prompt.ConversationContext(conv, history), conv.IsGroup))
	if err != nil {
		return "", err
	}
	if s := strings.TrimSpace(raw); s != "" {
		return s, nil
	}
	return noSummary, nil
}

// RiskLevel grades a content analysis.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Analysis is the outcome of a content check.
type Analysis struct {
	IsSpam                  bool      `json:"isSpam"`
	HasInappropriateContent bool      `json:"hasInappropriateContent"`
	ContainsSensitiveInfo   bool      `json:"containsSensitiveInfo"`
	RiskLevel               RiskLevel `json:"riskLevel"`
	Warnings                []string  `json:"warnings"`
}

func safeAnalysis(warning string) Analysis {
	return Analysis{RiskLevel: RiskLow, Warnings: []string{warning}}
}

// unavailable reports errors that mean the provider could not be used at
// all, as opposed to a call that went wrong.
func unavailable(err error) bool {
	return provider.IsConfigError(err) || errors.Is(err, provider.ErrUnavailable)
}

// AnalyzeContent checks message for spam, inappropriate content and
// sensitive data. When no provider can be used it returns a low-risk result
// whose warning says why.
func (a *Assistant) AnalyzeContent(ctx context.Context, message string) (Analysis, error) {
	if err := a.ready(ctx); err != nil {
		if errors.Is(err, provider.ErrDisabled) {
			return safeAnalysis("Content analysis disabled in settings"), nil
		}
		if unavailable(err) {
			return safeAnalysis(err.Error()), nil
		}
		return Analysis{}, err
	}
	raw, err := a.generate(ctx, prompt.ContentAnalysis(message))
	if err != nil {
		if unavailable(err) {
			return safeAnalysis(err.Error()), nil
		}
		return Analysis{}, err
	}
	return parseAnalysis(raw), nil
}

func parseAnalysis(raw string) Analysis {
	if obj, ok := between(raw, '{', '}'); ok {
		var an Analysis
		if err := json.Unmarshal([]byte(obj), &an); err == nil {
			an.RiskLevel = normalizeRisk(string(an.RiskLevel))
			if an.Warnings == nil {
				an.Warnings = []string{}
			}
			return an
		}
	}

	lower := strings.ToLower(raw)
	an := Analysis{
		IsSpam:                  strings.Contains(lower, "spam") || strings.Contains(lower, "promotional"),
		HasInappropriateContent: strings.Contains(lower, "inappropriate") || strings.Contains(lower, "offensive"),
		ContainsSensitiveInfo:   strings.Contains(lower, "sensitive") || strings.Contains(lower, "personal"),
		RiskLevel:               RiskLow,
		Warnings:                []string{},
	}
	switch {
	case strings.Contains(lower, "high risk"):
		an.RiskLevel = RiskHigh
	case strings.Contains(lower, "medium risk"):
		an.RiskLevel = RiskMedium
	}
	return an
}

func normalizeRisk(s string) RiskLevel {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ActionType classifies an action item.
type ActionType string

const (
	ActionTask        ActionType = "TASK"
	ActionAppointment ActionType = "APPOINTMENT"
	ActionReminder    ActionType = "REMINDER"
)

// ActionItem is a task, appointment or reminder found in a conversation.
type ActionItem struct {
	Type        ActionType `json:"type"`
	Description string     `json:"description"`
	DueDate     *string    `json:"dueDate"`
	Assignee    *string    `json:"assignee"`
}

// ActionItems extracts tasks, appointments and reminders from a
// conversation. It returns an empty list when no provider can be used.
func (a *Assistant) ActionItems(ctx context.Context, conv model.Conversation, history []model.Message) ([]ActionItem, error) {
	if err := a.ready(ctx); err != nil {
		if unavailable(err) {
			a.logger.Debug("action items skipped", zap.Error(err))
			return []ActionItem{}, nil
		}
		return nil, err
	}
	raw, err := a.generate(ctx, prompt.ActionItems(prompt.ConversationContext(conv, history)))
	if err != nil {
		if unavailable(err) {
			return []ActionItem{}, nil
		}
		return nil, err
	}
	return parseActionItems(raw), nil
}

var actionPrefixes = []struct {
	prefix string
	kind   ActionType
}{
	{"TODO:", ActionTask},
	{"Task:", ActionTask},
	{"Meeting:", ActionAppointment},
	{"Appointment:", ActionAppointment},
	{"Reminder:", ActionReminder},
}

func parseActionItems(raw string) []ActionItem {
	if arr, ok := between(raw, '[', ']'); ok {
		var items []ActionItem
		if err := json.Unmarshal([]byte(arr), &items); err == nil {
			out := make([]ActionItem, 0, len(items))
			for _, it := range items {
				if strings.TrimSpace(it.Description) == "" {
					continue
				}
				it.Type = ActionType(strings.ToUpper(string(it.Type)))
				switch it.Type {
				case ActionTask, ActionAppointment, ActionReminder:
				default:
					it.Type = ActionTask
				}
				out = append(out, it)
			}
			return out
		}
	}

	items := []ActionItem{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, p := range actionPrefixes {
			if len(line) >= len(p.prefix) && strings.EqualFold(line[:len(p.prefix)], p.prefix) {
				items = append(items, ActionItem{Type: p.kind, Description: strings.TrimSpace(line[len(p.prefix):])})
				break
			}
		}
	}
	return items
}

// between returns the text from the first opening to the last closing rune.
func between(s string, opening, closing rune) (string, bool) {
	i := strings.IndexRune(s, opening)
	j := strings.LastIndexFunc(s, func(r rune) bool { return r == closing })
	if i < 0 || j <= i {
		return "", false
	}
	return s[i : j+1], true
}

// WritingIssue is a problem CheckWriting can flag without a provider.
type WritingIssue string

const (
	IssueTooLong              WritingIssue = "TOO_LONG"
	IssueAllCaps              WritingIssue = "ALL_CAPS"
	IssueExcessivePunctuation WritingIssue = "EXCESSIVE_PUNCTUATION"
)

const (
	maxMessageLength = 500
	maxExclamations  = 3
)

// CheckWriting flags overly long, shouty or over-punctuated text.
func CheckWriting(text string) []WritingIssue {
	issues := []WritingIssue{}
	if text == "" {
		return issues
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		issues = append(issues, IssueTooLong)
	}

	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 && letters == upper {
		issues = append(issues, IssueAllCaps)
	}

	if strings.Count(text, "!") > maxExclamations {
		issues = append(issues, IssueExcessivePunctuation)
	}
	return issues
}
