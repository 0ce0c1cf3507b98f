package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cardlab-backend/internal/models"
)

// Deterministic card builders. When the fact set already carries enough
// structure (a dated timeline, relation triples), these build the card
// directly instead of spending an oracle call that tends to mangle exactly
// this kind of data.

// OrderFromTimeline builds an ORDER card from dated timeline entries.
// Needs at least three; entries are sorted by (year, label), capped at four,
// labels trimmed to 24 runes. Returns nil when the timeline is too thin.
func OrderFromTimeline(fs models.FactSet) *models.Card {
	events := numericTimeline(fs.Timeline)
	if len(events) < 3 {
		return nil
	}
	if len(events) > 4 {
		events = events[:4]
	}

	items := make([]string, len(events))
	order := make([]int, len(events))
	for i, ev := range events {
		items[i] = truncateRunes(ev.Label, 24)
		order[i] = i
	}
	return &models.Card{
		Type:    models.CardOrder,
		Explain: "연대순(오름차순)으로 배열한 타임라인 기반 문제.",
		Order:   &models.OrderCard{Items: items, AnswerOrder: order},
	}
}

// MatchFromTriples builds a MATCH card from relation triples: left side is
// the subject, right side is "predicate: object". Sides are deduplicated
// and capped at four; pairs are re-indexed after the trim. Returns nil
// unless at least three pairs survive.
func MatchFromTriples(fs models.FactSet) *models.Card {
	if len(fs.Triples) < 3 {
		return nil
	}

	var left, right []string
	leftIndex := map[string]int{}
	rightIndex := map[string]int{}
	var pairs [][2]int

	for _, t := range fs.Triples {
		rightLabel := fmt.Sprintf("%s: %s", t.Predicate, t.Object)
		if _, ok := leftIndex[t.Subject]; !ok {
			leftIndex[t.Subject] = len(left)
			left = append(left, t.Subject)
		}
		if _, ok := rightIndex[rightLabel]; !ok {
			rightIndex[rightLabel] = len(right)
			right = append(right, rightLabel)
		}
		pairs = append(pairs, [2]int{leftIndex[t.Subject], rightIndex[rightLabel]})
		if len(left) >= 4 && len(right) >= 4 {
			break
		}
	}
	if len(pairs) < 3 {
		return nil
	}

	if len(left) > 4 {
		left = left[:4]
	}
	if len(right) > 4 {
		right = right[:4]
	}
	usedLeft := map[int]bool{}
	usedRight := map[int]bool{}
	var trimmed [][2]int
	for _, p := range pairs {
		if p[0] >= len(left) || p[1] >= len(right) {
			continue
		}
		if usedLeft[p[0]] || usedRight[p[1]] {
			continue
		}
		usedLeft[p[0]] = true
		usedRight[p[1]] = true
		trimmed = append(trimmed, p)
		if len(trimmed) >= 4 {
			break
		}
	}
	if len(trimmed) < 3 {
		return nil
	}

	var explainParts []string
	for _, t := range fs.Triples[:3] {
		explainParts = append(explainParts, fmt.Sprintf("%s: %s %s", t.Subject, t.Predicate, t.Object))
	}
	return &models.Card{
		Type:    models.CardMatch,
		Explain: "추출된 관계를 반영한 매칭입니다: " + strings.Join(explainParts, "; ") + ".",
		Match:   &models.MatchCard{Left: left, Right: right, Pairs: trimmed},
	}
}

// MatchFromTimeline builds a year-to-event MATCH card for timeline focus
// mode. Needs at least three dated events.
func MatchFromTimeline(events []models.TimelineEvent) *models.Card {
	numeric := numericTimeline(events)
	if len(numeric) < 3 {
		return nil
	}
	if len(numeric) > 4 {
		numeric = numeric[:4]
	}

	left := make([]string, len(numeric))
	right := make([]string, len(numeric))
	pairs := make([][2]int, len(numeric))
	for i, ev := range numeric {
		left[i] = strconv.Itoa(*ev.Year)
		right[i] = truncateRunes(ev.Label, 32)
		pairs[i] = [2]int{i, i}
	}
	return &models.Card{
		Type:    models.CardMatch,
		Explain: "연표의 연도-사건 매칭.",
		Match:   &models.MatchCard{Left: left, Right: right, Pairs: pairs},
	}
}

// TimelineCard builds a single year-focused card of the requested type from
// the first dated timeline event. Returns nil when the type has no timeline
// form or no dated event exists.
func TimelineCard(cardType models.CardType, events []models.TimelineEvent) *models.Card {
	numeric := numericTimeline(events)
	if len(numeric) == 0 {
		return nil
	}
	event := numeric[0]
	year := *event.Year
	label := strings.TrimSpace(event.Label)
	if label == "" {
		return nil
	}

	explain := fmt.Sprintf("%d %s", year, label)
	subject, action := splitLabel(label)
	forms := actionForms(action)
	displaySubject := label
	if action != "" {
		displaySubject = subject
	}

	switch cardType {
	case models.CardMCQ:
		options := []string{strconv.Itoa(year)}
		for _, delta := range []int{1, -1, 2, -2, 3, -3} {
			candidate := year + delta
			if candidate <= 0 {
				continue
			}
			s := strconv.Itoa(candidate)
			if !containsString(options, s) {
				options = append(options, s)
			}
			if len(options) >= 3 {
				break
			}
		}
		for len(options) < 3 {
			candidate := year + len(options)
			if candidate <= 0 {
				candidate = len(options) + 1
			}
			s := strconv.Itoa(candidate)
			if !containsString(options, s) {
				options = append(options, s)
			}
		}
		return &models.Card{
			Type:    models.CardMCQ,
			Explain: explain,
			MCQ: &models.MCQCard{
				Question:    fmt.Sprintf("%s%s %s", displaySubject, topicParticle(displaySubject), forms.question),
				Options:     options,
				AnswerIndex: 0,
			},
		}

	case models.CardShort:
		return &models.Card{
			Type: models.CardShort,
			Short: &models.ShortCard{
				Prompt: fmt.Sprintf("%s%s %s", displaySubject, topicParticle(displaySubject), forms.question),
				Answer: strconv.Itoa(year),
			},
		}

	case models.CardOX:
		actor, objectParticle := timelineActor(displaySubject)
		return &models.Card{
			Type:    models.CardOX,
			Explain: explain,
			OX: &models.OXCard{
				Statement: fmt.Sprintf("%s%s %d년에 %s%s %s",
					actor, topicParticle(actor), year, displaySubject, objectParticle, forms.statement),
				Answer: true,
			},
		}

	case models.CardCloze:
		actor, objectParticle := timelineActor(displaySubject)
		return &models.Card{
			Type:    models.CardCloze,
			Explain: explain,
			Cloze: &models.ClozeCard{
				Text: fmt.Sprintf("%s%s {{c1}}년에 %s%s %s",
					actor, topicParticle(actor), displaySubject, objectParticle, forms.cloze),
				Clozes: map[string]string{"c1": strconv.Itoa(year)},
			},
		}
	}
	return nil
}

// timelineActor picks the statement subject for OX and CLOZE timeline
// cards. 훈민정음 reads unnaturally as an actor, so the creator stands in.
func timelineActor(displaySubject string) (actor, objectParticle string) {
	if displaySubject == "훈민정음" {
		return "세종대왕", "을"
	}
	return displaySubject, topicParticle(displaySubject)
}

// numericTimeline keeps only dated events, sorted by (year, label).
func numericTimeline(events []models.TimelineEvent) []models.TimelineEvent {
	var numeric []models.TimelineEvent
	for _, ev := range events {
		label := strings.TrimSpace(ev.Label)
		if ev.Year == nil || label == "" {
			continue
		}
		numeric = append(numeric, models.TimelineEvent{Year: ev.Year, Label: label})
	}
	sort.SliceStable(numeric, func(i, j int) bool {
		if *numeric[i].Year != *numeric[j].Year {
			return *numeric[i].Year < *numeric[j].Year
		}
		return numeric[i].Label < numeric[j].Label
	})
	return numeric
}

// hasBatchim reports whether the final hangul syllable has a trailing
// consonant, which decides the particle form.
func hasBatchim(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return true
	}
	code := runes[len(runes)-1]
	if code >= 0xAC00 && code <= 0xD7A3 {
		return (code-0xAC00)%28 != 0
	}
	return true
}

func topicParticle(text string) string {
	if hasBatchim(text) {
		return "은"
	}
	return "는"
}

func subjectParticle(text string) string {
	if hasBatchim(text) {
		return "이"
	}
	return "가"
}

var labelSubjects = map[string][2]string{
	"훈민정음 창제": {"훈민정음", "창제"},
	"훈민정음":    {"훈민정음", "창제"},
	"조선 건국":   {"이성계", "조선을 건국"},
	"조선":      {"이성계", "조선을 건국"},
}

var labelSeparators = []string{" ", "·", "-", "―"}

var labelActionSuffixes = []string{
	"창제", "편찬", "반포", "건립", "건국", "설립",
	"수립", "창건", "탄생", "즉위", "집권", "발생",
}

// splitLabel separates a timeline label into subject and action, e.g.
// "훈민정음 창제" into ("훈민정음", "창제"). Falls back to the whole label with an
// empty action.
func splitLabel(label string) (subject, action string) {
	work := strings.TrimSpace(label)
	if work == "" {
		return label, ""
	}
	if mapped, ok := labelSubjects[work]; ok {
		return mapped[0], mapped[1]
	}
	for _, sep := range labelSeparators {
		if idx := strings.Index(work, sep); idx >= 0 {
			subject := strings.TrimSpace(work[:idx])
			remainder := strings.TrimSpace(work[idx+len(sep):])
			if subject != "" && remainder != "" {
				return subject, remainder
			}
		}
	}
	for _, suffix := range labelActionSuffixes {
		if strings.HasSuffix(work, suffix) && len(work) > len(suffix) {
			if subject := strings.TrimSpace(strings.TrimSuffix(work, suffix)); subject != "" {
				return subject, suffix
			}
		}
	}
	return work, ""
}

type verbForms struct {
	question  string
	statement string
	cloze     string
}

var actionTemplates = []struct {
	keyword string
	forms   verbForms
}{
	{"창제", verbForms{"창제한 연도는?", "창제하였다.", "창제하였다."}},
	{"편찬", verbForms{"편찬된 연도는?", "편찬되었다.", "편찬되었다."}},
	{"반포", verbForms{"반포된 연도는?", "반포되었다.", "반포되었다."}},
	{"창건", verbForms{"창건된 연도는?", "창건되었다.", "창건되었다."}},
	{"건립", verbForms{"건립된 연도는?", "건립되었다.", "건립되었다."}},
	{"설립", verbForms{"설립된 연도는?", "설립되었다.", "설립되었다."}},
	{"수립", verbForms{"수립된 연도는?", "수립되었다.", "수립되었다."}},
	{"건국", verbForms{"건국된 연도는?", "건국되었다.", "건국되었다."}},
	{"탄생", verbForms{"탄생한 연도는?", "탄생하였다.", "탄생하였다."}},
	{"즉위", verbForms{"즉위한 연도는?", "즉위하였다.", "즉위하였다."}},
	{"집권", verbForms{"집권한 연도는?", "집권하였다.", "집권하였다."}},
	{"발생", verbForms{"발생한 연도는?", "발생하였다.", "발생하였다."}},
	{"승리", verbForms{"승리한 연도는?", "승리하였다.", "승리하였다."}},
	{"패배", verbForms{"패배한 연도는?", "패배하였다.", "패배하였다."}},
	{"개혁", verbForms{"실시된 연도는?", "실시되었다.", "실시되었다."}},
}

func actionForms(action string) verbForms {
	base := strings.TrimSpace(action)
	for _, tpl := range actionTemplates {
		if strings.Contains(base, tpl.keyword) {
			return tpl.forms
		}
	}
	return verbForms{"몇 년에 일어났습니까?", "일어났다.", "일어났다."}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
