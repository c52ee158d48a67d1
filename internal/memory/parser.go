// Package memory turns incoming messages into remembered facts: it prompts
// a provider, parses the free-text reply and stores the result.
package memory

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/msg-memory/internal/model"
)

// ParseOutcome records which stage of the response cascade produced a
// result.
type ParseOutcome int

const (
	NoMatch ParseOutcome = iota
	StructuredJSON
	EmbeddedJSON
	KeyValueRegex
	KeywordHeuristic
)

func (o ParseOutcome) String() string {
	switch o {
	case StructuredJSON:
		return "structured_json"
	case EmbeddedJSON:
		return "embedded_json"
	case KeyValueRegex:
		return "key_value_regex"
	case KeywordHeuristic:
		return "keyword_heuristic"
	default:
		return "no_match"
	}
}

// Default confidences per stage.
const (
	structuredConfidence = 1.0
	embeddedConfidence   = 0.7
	keyValueConfidence   = 0.5
	keywordConfidence    = 0.3
)

// Extraction is the parsed payload of a provider reply.
type Extraction struct {
	Text       string
	Category   string
	Confidence float64
}

// verdict is a stage's answer: it produced an extraction, it positively
// determined there is nothing to extract, or it could not tell.
type verdict int

const (
	pass verdict = iota
	matched
	rejected
)

type stage struct {
	outcome ParseOutcome
	run     func(raw string) (Extraction, verdict)
}

var stages = []stage{
	{StructuredJSON, parseStructured},
	{EmbeddedJSON, parseEmbedded},
	{KeyValueRegex, parseKeyValue},
	{KeywordHeuristic, parseKeywords},
}

// ParseResponse runs the cascade over raw and stops at the first stage that
// matches or rejects.
func ParseResponse(raw string) (Extraction, ParseOutcome) {
	if strings.TrimSpace(raw) == "" {
		return Extraction{}, NoMatch
	}
	for _, st := range stages {
		ext, v := st.run(raw)
		switch v {
		case matched:
			return ext, st.outcome
		case rejected:
			return Extraction{}, NoMatch
		}
	}
	return Extraction{}, NoMatch
}

// Source identifies the message an extraction came from.
type Source struct {
	Conversation model.Conversation
	Message      model.Message
}

// Parse converts a provider reply into a memory item, or nil when the reply
// carries nothing worth keeping.
func Parse(raw string, src Source, now time.Time) (*model.MemoryItem, ParseOutcome) {
	ext, outcome := ParseResponse(raw)
	if outcome == NoMatch {
		return nil, NoMatch
	}
	convID := src.Conversation.Key()
	item := model.MemoryItem{
		ID:                  model.NewItemID(convID, now),
		ConversationID:      convID,
		ConversationTitle:   src.Conversation.Title,
		ExtractedText:       ext.Text,
		OriginalMessageText: src.Message.Text,
		SenderName:          src.Message.Sender,
		CreatedAt:           now,
		Category:            ext.Category,
		Confidence:          ext.Confidence,
	}
	return &item, outcome
}

// stripFences removes markdown code-fence markers.
func stripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseStructured treats the whole (unfenced) reply as a JSON object. A
// well-formed object settles the question either way.
func parseStructured(raw string) (Extraction, verdict) {
	obj, ok := decodeObject(stripFences(raw))
	if !ok {
		return Extraction{}, pass
	}
	if ext, ok := extractionFrom(obj, structuredConfidence); ok {
		return ext, matched
	}
	return Extraction{}, rejected
}

var embeddedPattern = regexp.MustCompile(`\{[^}]*"hasInfo"[^}]*\}`)

// parseEmbedded looks for the first flat JSON fragment mentioning hasInfo.
func parseEmbedded(raw string) (Extraction, verdict) {
	frag := embeddedPattern.FindString(stripFences(raw))
	if frag == "" {
		return Extraction{}, pass
	}
	obj, ok := decodeObject(frag)
	if !ok {
		return Extraction{}, pass
	}
	if ext, ok := extractionFrom(obj, embeddedConfidence); ok {
		return ext, matched
	}
	return Extraction{}, pass
}

var (
	infoPattern     = regexp.MustCompile(`"info"\s*:?\s*"([^"]+)"`)
	categoryPattern = regexp.MustCompile(`"category"\s*:?\s*"([^"]+)"`)
)

// parseKeyValue pulls info and category straight out of a reply that says
// hasInfo is true but is not valid JSON.
func parseKeyValue(raw string) (Extraction, verdict) {
	if !strings.Contains(raw, "hasInfo") || !strings.Contains(raw, "true") {
		return Extraction{}, pass
	}
	m := infoPattern.FindStringSubmatch(raw)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return Extraction{}, pass
	}
	ext := Extraction{Text: m[1], Category: model.CategoryGeneral, Confidence: keyValueConfidence}
	if c := categoryPattern.FindStringSubmatch(raw); c != nil {
		ext.Category = c[1]
	}
	return ext, matched
}

// Patterns tried in order; the first with any hit wins.
var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4,6}\b`),
	regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:am|pm)?\b`),
	regexp.MustCompile(`(?i)\b(?:meeting|appointment|event|party|dinner|lunch)\b`),
}

// parseKeywords salvages a low-confidence note from recognisable tokens.
func parseKeywords(raw string) (Extraction, verdict) {
	for _, re := range keywordPatterns {
		if hits := re.FindAllString(raw, -1); len(hits) > 0 {
			return Extraction{
				Text:       "Response contains: " + strings.Join(hits, ", "),
				Category:   model.CategoryExtracted,
				Confidence: keywordConfidence,
			}, matched
		}
	}
	return Extraction{}, pass
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// extractionFrom reads {hasInfo, info, category, confidence}. It fails when
// hasInfo is not true or info is blank.
func extractionFrom(obj map[string]any, defaultConfidence float64) (Extraction, bool) {
	if !truthy(obj["hasInfo"]) {
		return Extraction{}, false
	}
	info, _ := obj["info"].(string)
	if strings.TrimSpace(info) == "" {
		return Extraction{}, false
	}
	ext := Extraction{Text: info, Category: model.CategoryGeneral, Confidence: defaultConfidence}
	// A blank category counts as missing.
	if c, ok := obj["category"].(string); ok && c != "" {
		ext.Category = c
	}
	if c, ok := number(obj["confidence"]); ok {
		ext.Confidence = min(max(c, 0), 1)
	}
	return ext, true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		var f float64
		if err := json.Unmarshal([]byte(t), &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
