package services

import (
	"regexp"
	"strings"

	"cardlab-backend/internal/models"
)

// entityFeatures rewrites MATCH right-side items to a short noun phrase
// describing the paired entity.
var entityFeatures = map[string]string{
	"훈민정음":   "한국 고유 문자",
	"측우기":    "강우량 측정 기구",
	"농사직설":   "농업 기술서",
	"경국대전":   "조선 기본 법전",
	"동국통감":   "한국사 편년체 사서",
	"월인천강지곡": "불교 찬불가",
	"용비어천가":  "조선 건국 서사시",
	"석보상절":   "불교 경전 언해서",
	"월인석보":   "불교 경전 해설서",
}

var (
	subjectParticlePattern = regexp.MustCompile(`[가-힣]+[은는이가을를]\s*`)
	creationVerbPattern    = regexp.MustCompile(`[창제발명편찬]하[였다]*`)
	tokenPattern           = regexp.MustCompile(`[가-힣A-Za-z0-9]+`)
)

// SanitizeMatchRight rewrites the right side of a MATCH card from
// action-phrase text into characteristic noun phrases. Left entities with a
// known feature get the canonical description; other entries are classified
// by their verbs, else compacted.
func SanitizeMatchRight(card *models.Card) {
	if card.Type != models.CardMatch || card.Match == nil {
		return
	}
	m := card.Match
	if len(m.Left) == 0 || len(m.Right) == 0 {
		return
	}

	for _, pair := range m.Pairs {
		li, ri := pair[0], pair[1]
		if li < 0 || li >= len(m.Left) || ri < 0 || ri >= len(m.Right) {
			continue
		}
		entity := strings.TrimSpace(m.Left[li])
		text := strings.TrimSpace(m.Right[ri])

		if feature, ok := entityFeatures[entity]; ok {
			m.Right[ri] = feature
			continue
		}

		switch {
		case strings.Contains(text, "창제") || strings.Contains(text, "발명"):
			switch {
			case strings.Contains(text, "글자") || strings.Contains(text, "문자"):
				m.Right[ri] = "문자 체계"
			case strings.Contains(text, "기구") || strings.Contains(text, "도구"):
				m.Right[ri] = "과학 기구"
			default:
				m.Right[ri] = "창작물"
			}
		case strings.Contains(text, "편찬"):
			switch {
			case strings.Contains(text, "서적") || strings.Contains(text, "책"):
				switch {
				case strings.Contains(text, "농업"):
					m.Right[ri] = "농업 기술서"
				case strings.Contains(text, "역사"):
					m.Right[ri] = "역사서"
				default:
					m.Right[ri] = "편찬서"
				}
			default:
				m.Right[ri] = "편찬물"
			}
		default:
			t := subjectParticlePattern.ReplaceAllString(text, "")
			t = creationVerbPattern.ReplaceAllString(t, "")
			if phrase := compactPhrase(t); phrase != "" {
				m.Right[ri] = phrase
			} else {
				m.Right[ri] = "관련 항목"
			}
		}
	}
}

// compactPhrase trims terminal punctuation and caps the phrase at 20 runes.
func compactPhrase(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimRight(t, " .!?;:")
	runes := []rune(t)
	if len(runes) > 20 {
		t = string(runes[:20])
	}
	return t
}

// FillClozeFromFacts fills empty or sentence-shaped CLOZE values with a
// compact token drawn from the fact set. Tokens appearing in the card's
// explain win, then tokens appearing in the text body, then the first
// available. A full sentence is never used as a cloze value.
func FillClozeFromFacts(card *models.Card, facts models.FactSet) {
	if card.Type != models.CardCloze || card.Cloze == nil || card.Cloze.Clozes == nil {
		return
	}

	candidates := clozeTokenCandidates(facts)
	textNoPlaceholders := clozePlaceholderPattern.ReplaceAllString(card.Cloze.Text, " ")

	pick := func() string {
		for _, c := range candidates {
			if card.Explain != "" && strings.Contains(card.Explain, c) {
				return c
			}
		}
		for _, c := range candidates {
			if strings.Contains(textNoPlaceholders, c) {
				return c
			}
		}
		if len(candidates) > 0 {
			return candidates[0]
		}
		return ""
	}

	for placeholder, current := range card.Cloze.Clozes {
		if isClozeToken(current) {
			continue
		}
		card.Cloze.Clozes[placeholder] = pick()
	}
}

// clozeTokenCandidates returns blank-fill candidates: entities first, then
// keywords mined from fact statements. Sentences are excluded.
func clozeTokenCandidates(facts models.FactSet) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || !isClozeToken(s) {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, e := range facts.Entities {
		add(e)
	}
	for _, f := range facts.Facts {
		for _, word := range tokenPattern.FindAllString(f.Statement, -1) {
			add(word)
		}
	}
	return out
}

func isClozeToken(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" || len([]rune(t)) > 20 {
		return false
	}
	return !strings.ContainsAny(t, ` ,.?!:;"'()`)
}
