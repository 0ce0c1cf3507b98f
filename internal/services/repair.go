package services

import (
	"fmt"
	"regexp"
	"strings"

	"cardlab-backend/internal/models"
)

// Distractor pools for MCQ repair, picked by question form. Names for
// "누가" questions, royal-era works for achievement questions, general terms
// otherwise.
var (
	PersonDistractors = []string{
		"세조", "성종", "중종", "인종", "명종", "선조", "광해군", "인조",
	}
	AchievementDistractors = []string{
		"경국대전", "동국통감", "국조오례의", "월인천강지곡",
		"용비어천가", "석보상절", "월인석보", "동국정운",
	}
	GeneralDistractors = []string{
		"가갸날", "한자", "천자문", "동국정운",
		"월인천강지곡", "용비어천가", "석보상절", "월인석보",
	}
)

var explainSubjectPattern = regexp.MustCompile(`([가-힣A-Za-z0-9]{2,}(?:대왕|왕|조|종))[은는이가]`)

var mcqRepairCodes = map[string]bool{
	"mcq_options_length":            true,
	"mcq_option_duplicate":          true,
	"mcq_option_empty":              true,
	"mcq_answer_index":              true,
	"mcq_option_semantic_duplicate": true,
	"mcq_option_filler":             true,
	"mcq_answer_mismatch":           true,
	"mcq_unnatural_question":        true,
}

// ApplyLocalFixes repairs cards in place using the validator findings,
// without an oracle round trip. Reports whether anything changed; the
// caller re-validates either way. Repairs are idempotent, so running the
// stage twice on the same card is harmless.
func ApplyLocalFixes(cards []models.Card, errs []models.ValidationError) bool {
	changed := false
	for _, e := range errs {
		if e.CardIndex < 0 || e.CardIndex >= len(cards) {
			continue
		}
		card := &cards[e.CardIndex]
		switch {
		case mcqRepairCodes[e.Code]:
			if repairMCQ(card) {
				changed = true
			}
		case strings.HasPrefix(e.Code, "cloze_"):
			if repairCloze(card) {
				changed = true
			}
		}
	}
	return changed
}

func repairMCQ(card *models.Card) bool {
	if card.Type != models.CardMCQ || card.MCQ == nil {
		return false
	}
	mcq := card.MCQ

	// Literal dedupe, then semantic dedupe, then drop filler options.
	var options []string
	seen := map[string]bool{}
	for _, opt := range mcq.Options {
		text := strings.TrimSpace(opt)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		options = append(options, text)
	}
	canonSeen := map[string]bool{}
	deduped := options[:0]
	for _, opt := range options {
		key := canonOption(opt)
		if canonSeen[key] {
			continue
		}
		canonSeen[key] = true
		deduped = append(deduped, opt)
	}
	options = deduped

	filtered := options[:0]
	for _, opt := range options {
		filler := false
		for _, marker := range FillerMarkers {
			if strings.Contains(opt, marker) {
				filler = true
				break
			}
		}
		if !filler {
			filtered = append(filtered, opt)
		}
	}
	options = filtered

	correctAnswer := ""
	explain := strings.TrimSpace(card.Explain)
	if matches := ExplainAnswerPattern.FindStringSubmatch(explain); matches != nil {
		correctAnswer = matches[1]
	}

	// Rewrite unnatural question forms using the verb in explain.
	question := strings.TrimSpace(mcq.Question)
	unnatural := false
	for _, marker := range unnaturalQuestionMarkers {
		if strings.Contains(question, marker) {
			unnatural = true
			break
		}
	}
	if question != "" && unnatural && correctAnswer != "" {
		switch {
		case strings.Contains(explain, "창제") || strings.Contains(explain, "발명"):
			mcq.Question = fmt.Sprintf("%s을 누가 창제했나?", correctAnswer)
		case strings.Contains(explain, "편찬"):
			mcq.Question = fmt.Sprintf("%s을 누가 편찬했나?", correctAnswer)
		case strings.Contains(explain, "설립") || strings.Contains(explain, "건립"):
			mcq.Question = fmt.Sprintf("%s을 누가 설립했나?", correctAnswer)
		default:
			if matches := explainSubjectPattern.FindStringSubmatch(explain); matches != nil {
				mcq.Question = fmt.Sprintf("다음 중 %s의 업적은?", matches[1])
			}
		}
	}

	if correctAnswer != "" {
		present := false
		for _, opt := range options {
			if opt == correctAnswer {
				present = true
				break
			}
		}
		if !present {
			if len(options) > 0 {
				options[0] = correctAnswer
			} else {
				options = append(options, correctAnswer)
			}
		}
	}

	// Top up to four options from the pool matching the question form.
	question = strings.TrimSpace(mcq.Question)
	var pool []string
	switch {
	case strings.Contains(question, "누가"):
		pool = PersonDistractors
	case strings.Contains(question, "업적") || strings.Contains(question, "만든 것"):
		pool = AchievementDistractors
	default:
		pool = GeneralDistractors
	}
	for _, candidate := range pool {
		if len(options) >= 4 {
			break
		}
		if candidate == correctAnswer {
			continue
		}
		dup := false
		for _, opt := range options {
			if opt == candidate {
				dup = true
				break
			}
		}
		if !dup {
			options = append(options, candidate)
		}
	}
	for len(options) < 4 {
		options = append(options, fmt.Sprintf("기타 선택지 %d", len(options)+1))
	}
	if len(options) > 4 {
		options = options[:4]
	}
	mcq.Options = options

	if correctAnswer != "" {
		for i, opt := range options {
			if opt == correctAnswer {
				mcq.AnswerIndex = i
				break
			}
		}
	}
	if mcq.AnswerIndex < 0 || mcq.AnswerIndex >= len(options) {
		mcq.AnswerIndex = 0
	}
	return true
}

// repairCloze reconciles the clozes map with the placeholders actually
// present in the text: missing keys get empty values for the fill step,
// stray keys are dropped.
func repairCloze(card *models.Card) bool {
	if card.Type != models.CardCloze || card.Cloze == nil {
		return false
	}
	cloze := card.Cloze
	if cloze.Clozes == nil {
		cloze.Clozes = map[string]string{}
	}

	present := map[string]bool{}
	for _, match := range clozePlaceholderPattern.FindAllStringSubmatch(cloze.Text, -1) {
		placeholder := match[1]
		present[placeholder] = true
		if _, ok := cloze.Clozes[placeholder]; !ok {
			cloze.Clozes[placeholder] = ""
		}
	}
	for key := range cloze.Clozes {
		if !present[key] {
			delete(cloze.Clozes, key)
		}
	}
	return true
}
