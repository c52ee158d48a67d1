// Package twofa spots one-time verification codes in incoming messages and
// keeps the few most recent ones.
package twofa

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Code patterns, tried in order. Patterns with a capture group yield the
// group; the rest yield the whole match.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`G-\d{6}`),
	regexp.MustCompile(`\b\d{6}\b`),
	regexp.MustCompile(`\b\d{4}\b`),
	regexp.MustCompile(`Apple ID.*?verification.*?(\d{6})`),
	regexp.MustCompile(`verification.*?code.*?(\d{6})`),
	regexp.MustCompile(`code[:\s]+(\d{4,8})`),
	regexp.MustCompile(`(?i)use\s+(\d{4,8})\s+to\s+verify`),
	regexp.MustCompile(`(?i)your.*?code.*?(\d{4,8})`),
}

var keywords = []string{
	"verification", "verify", "code", "authenticate", "login", "sign in",
	"security", "2fa", "two-factor", "otp", "one-time", "passcode",
	"don't share", "expires", "valid for",
}

var (
	numericCode = regexp.MustCompile(`\b\d{4,8}\b`)
	nonDigit    = regexp.MustCompile(`\D`)
)

const (
	minTextLength  = 4
	maxShortSender = 6
	minCodeLength  = 4
	maxCodeLength  = 8
)

func matchedKeywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			out = append(out, k)
		}
	}
	return out
}

func matchedPatterns(text string) int {
	n := 0
	for _, p := range codePatterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// LooksLikeCode reports whether text has any sign of carrying a code: a
// keyword, a code pattern or a bare 4–8 digit number.
func LooksLikeCode(text string) bool {
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) < minTextLength {
		return false
	}
	return len(matchedKeywords(text)) > 0 || matchedPatterns(text) > 0 || numericCode.MatchString(text)
}

// IsShortSender reports whether sender looks like an SMS short code or a
// bare number, which is where verification texts come from.
func IsShortSender(sender string) bool {
	if utf8.RuneCountInString(sender) <= maxShortSender {
		return true
	}
	for _, r := range sender {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsCandidate reports whether a message from sender should be searched for
// codes.
func IsCandidate(text, sender string) bool {
	if !IsShortSender(sender) {
		return false
	}
	return len(matchedKeywords(text)) > 0 || matchedPatterns(text) > 0
}

// ExtractCodes returns the distinct codes in text, in pattern order. Every
// code is reduced to its digits and must be 4 to 8 long.
func ExtractCodes(text string) []string {
	seen := map[string]bool{}
	var codes []string
	for _, p := range codePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			raw := m[0]
			if len(m) > 1 {
				raw = m[1]
			}
			code := nonDigit.ReplaceAllString(raw, "")
			if len(code) < minCodeLength || len(code) > maxCodeLength || seen[code] {
				continue
			}
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

var services = []struct {
	name     string
	needles  []string
	bySender bool
}{
	{"Google", []string{"google"}, true},
	{"Apple", []string{"apple"}, true},
	{"Microsoft", []string{"microsoft"}, true},
	{"Facebook/Meta", []string{"facebook", "meta"}, false},
	{"Twitter/X", []string{"twitter", "x.com"}, false},
	{"Instagram", []string{"instagram"}, false},
	{"WhatsApp", []string{"whatsapp"}, false},
	{"Telegram", []string{"telegram"}, false},
	{"Discord", []string{"discord"}, false},
	{"GitHub", []string{"github"}, false},
	{"Amazon", []string{"amazon"}, false},
	{"PayPal", []string{"paypal"}, false},
	{"Bank", []string{"bank"}, false},
}

// DetectService names the service that sent a code. It falls back to the
// sender, then to "Unknown Service".
func DetectService(text, sender string) string {
	lower := strings.ToLower(text)
	for _, s := range services {
		for _, n := range s.needles {
			if strings.Contains(lower, n) || (s.bySender && strings.Contains(sender, n)) {
				return s.name
			}
		}
	}
	if sender != "" {
		return sender
	}
	return "Unknown Service"
}

// Explanation is a diagnostic breakdown of how a message would be handled.
type Explanation struct {
	Sender         string   `json:"sender"`
	SenderLength   int      `json:"sender_length"`
	ShortSender    bool     `json:"short_sender"`
	Keywords       []string `json:"keywords"`
	PatternMatches int      `json:"pattern_matches"`
	LooksLikeCode  bool     `json:"looks_like_code"`
	WouldProcess   bool     `json:"would_process"`
	Codes          []string `json:"codes"`
	Service        string   `json:"service,omitempty"`
}

// Explain reports every check applied to a message from sender.
func Explain(text, sender string) Explanation {
	e := Explanation{
		Sender:         sender,
		SenderLength:   utf8.RuneCountInString(sender),
		ShortSender:    IsShortSender(sender),
		Keywords:       matchedKeywords(text),
		PatternMatches: matchedPatterns(text),
		LooksLikeCode:  LooksLikeCode(text),
		WouldProcess:   IsCandidate(text, sender),
		Codes:          ExtractCodes(text),
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	if e.Codes == nil {
		e.Codes = []string{}
	}
	if e.WouldProcess && len(e.Codes) > 0 {
		e.Service = DetectService(text, sender)
	}
	return e
}

func (e Explanation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sender: %s (%d chars)\n", e.Sender, e.SenderLength)
	fmt.Fprintf(&b, "Short sender: %t\n", e.ShortSender)
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(e.Keywords, ", "))
	fmt.Fprintf(&b, "Pattern matches: %d\n", e.PatternMatches)
	fmt.Fprintf(&b, "Looks like a code: %t\n", e.LooksLikeCode)
	fmt.Fprintf(&b, "Would process: %t\n", e.WouldProcess)
	fmt.Fprintf(&b, "Codes: %s\n", strings.Join(e.Codes, ", "))
	if e.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", e.Service)
	}
	return b.String()
}
