package assistant

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/msg-memory/internal/model"
	"github.com/rcliao/msg-memory/internal/prompt"
	"github.com/rcliao/msg-memory/internal/store"
)

// Enhance rewrites text in tone. When conv is set, memories from other
// conversations that mention text are offered to the model so it can
// complete a half-written message. An empty rewrite yields text unchanged.
func (a *Assistant) Enhance(ctx context.Context, text string, tone prompt.Tone, convContext string, conv *model.Conversation) (string, error) {
	if err := a.ready(ctx); err != nil {
		return "", err
	}
	memories := a.relevant(ctx, conv, text, store.DefaultRelevantLimit)
	raw, err := a.generate(ctx, prompt.Enhance(text, tone, convContext, memories))
	if err != nil {
		return "", err
	}
	if cleaned := cleanResponse(raw); cleaned != "" {
		return cleaned, nil
	}
	return text, nil
}

// EnhanceMultiple returns up to three rewrites of text: casual,
// professional and enthusiastic.
func (a *Assistant) EnhanceMultiple(ctx context.Context, text, convContext string, conv *model.Conversation) ([]string, error) {
	if err := a.ready(ctx); err != nil {
		return nil, err
	}
	memories := a.relevant(ctx, conv, text, store.DefaultRelevantLimit)
	raw, err := a.generate(ctx, prompt.EnhanceMultiple(text, convContext, memories))
	if err != nil {
		return nil, err
	}
	return parseVariants(raw, text), nil
}

// CheckGrammar fixes spelling, grammar and punctuation only.
func (a *Assistant) CheckGrammar(ctx context.Context, text string) (string, error) {
	if err := a.ready(ctx); err != nil {
		return "", err
	}
	raw, err := a.generate(ctx, prompt.GrammarCheck(text))
	if err != nil {
		return "", err
	}
	if cleaned := cleanResponse(raw); cleaned != "" {
		return cleaned, nil
	}
	return text, nil
}

const maxVariants = 3

var (
	colonVariant  = regexp.MustCompile(`^[123]:\s*(.+)$`)
	dottedVariant = regexp.MustCompile(`^[123][.)]\s*(.+)$`)
	paragraphGap  = regexp.MustCompile(`\n\n+`)
)

// parseVariants reads numbered rewrites from raw. It tries "1:" lines, then
// "1." or "1)" lines, then whole paragraphs. If nothing usable comes back
// it decorates original.
func parseVariants(raw, original string) []string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for _, pat := range []*regexp.Regexp{colonVariant, dottedVariant} {
		var out []string
		for _, line := range lines {
			m := pat.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			v := strings.TrimSpace(m[1])
			if v == "" || strings.HasPrefix(v, "[") || strings.HasSuffix(v, "]") {
				continue
			}
			out = append(out, v)
		}
		if len(out) > 0 {
			return firstN(out, maxVariants)
		}
	}

	var paras []string
	for _, p := range paragraphGap.Split(raw, -1) {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) > 10 && !strings.ContainsAny(p, "[]") {
			paras = append(paras, p)
		}
	}
	if len(paras) > 0 {
		return firstN(paras, maxVariants)
	}

	base := strings.TrimSpace(original)
	if base == "" {
		base = "Message enhanced"
	}
	return []string{base + " 😊", base + ".", base + "!"}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Labels models like to put in front of a rewrite.
var responseLabels = []string{
	"Professional and Polished:",
	"Casual and Friendly:",
	"Enthusiastic and Engaging:",
	"Improved message:",
	"Enhanced message:",
	"Corrected message:",
	"Here is the improved message:",
	"Here's the enhanced version:",
	"**Professional and Polished:**",
	"**Casual and Friendly:**",
	"**Enthusiastic and Engaging:**",
	"**Improved message:**",
	"**Enhanced message:**",
	"Improved:",
	"Enhanced:",
	"Corrected:",
	"Result:",
	"Output:",
	"Response:",
}

var quoteStripper = strings.NewReplacer(
	`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "",
	"‚", "", "„", "", "‹", "", "›", "", "«", "", "»", "",
	"`", "", "´", "",
)

var markdownStripper = strings.NewReplacer("**", "", "*", "", "__", "", "_", "")

// Apostrophes lost to quote stripping are restored for unambiguous
// contractions. Words that are also plain English (its, were, well, ill,
// hell, shell) are left alone.
var contractions = map[string]string{
	"dont": "don't", "cant": "can't", "wont": "won't", "isnt": "isn't",
	"arent": "aren't", "wasnt": "wasn't", "werent": "weren't",
	"havent": "haven't", "hasnt": "hasn't", "hadnt": "hadn't",
	"wouldnt": "wouldn't", "couldnt": "couldn't", "shouldnt": "shouldn't",
	"didnt": "didn't", "doesnt": "doesn't", "im": "I'm", "youre": "you're",
	"hes": "he's", "shes": "she's", "theyre": "they're", "youll": "you'll",
	"theyll": "they'll", "ive": "I've", "youve": "you've", "weve": "we've",
	"theyve": "they've",
}

var contractionPattern = func() *regexp.Regexp {
	words := make([]string, 0, len(contractions))
	for w := range contractions {
		words = append(words, w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
}()

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanResponse strips labels, quotes and markdown from a single-message
// rewrite and normalizes whitespace.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	for pass := 0; pass < 3; pass++ {
		for _, label := range responseLabels {
			if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
				s = strings.TrimSpace(s[len(label):])
			}
		}
	}

	s = quoteStripper.Replace(s)
	s = contractionPattern.ReplaceAllStringFunc(s, func(w string) string {
		fixed := contractions[strings.ToLower(w)]
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			fr, size := utf8.DecodeRuneInString(fixed)
			return string(unicode.ToUpper(fr)) + fixed[size:]
		}
		return fixed
	})
	s = markdownStripper.Replace(s)

	s = strings.TrimPrefix(s, ":")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "•")
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.TrimSpace(s)
}
