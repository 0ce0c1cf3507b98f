package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"cardlab-backend/internal/models"
)

// OptionAliases canonicalizes known synonym groups so MCQ options that mean
// the same thing are caught as duplicates.
var OptionAliases = map[string]string{
	"훈민정음":          "훈민정음",
	"한글":            "훈민정음",
	"hunminjeongeum": "훈민정음",
}

// FillerMarkers flag auto-generated throwaway options.
var FillerMarkers = []string{"자동 생성", "오답"}

// ExplainAnswerPattern extracts the subject of a creation/compilation verb
// from explain text, e.g. "세종대왕은 훈민정음을 창제하였다" yields 훈민정음... or the
// acting subject depending on particle position.
var ExplainAnswerPattern = regexp.MustCompile(`([가-힣A-Za-z0-9]{2,})[을를이가는은]\s*(?:창제|발명|편찬|건립|설립|수립|반포)`)

var unnaturalQuestionMarkers = []string{"무엇인가", "란?", "이란?"}

var (
	canonSpacePattern     = regexp.MustCompile(`\s+`)
	canonSeparatorPattern = regexp.MustCompile(`[\-·_]`)
)

// canonOption reduces an option to a comparison key: whitespace removed,
// lowercased, alias-folded, separators stripped.
func canonOption(value string) string {
	v := strings.ToLower(canonSpacePattern.ReplaceAllString(value, ""))
	if alias, ok := OptionAliases[v]; ok {
		return alias
	}
	return canonSeparatorPattern.ReplaceAllString(v, "")
}

// ValidateCards checks a card list against the per-type structural and
// content rules. Returns (true, nil) only when every card passes. Errors
// carry structured metadata for the repair stages.
func ValidateCards(cards []models.Card) (bool, []models.ValidationError) {
	if len(cards) == 0 {
		return false, []models.ValidationError{{
			Code:      "invalid_cards",
			CardIndex: -1,
			Message:   "cards must be a non-empty list",
		}}
	}

	var errs []models.ValidationError
	for idx, card := range cards {
		if !models.KnownCardType(card.Type) {
			errs = append(errs, models.ValidationError{
				Code:      "unknown_type",
				CardIndex: idx,
				Message:   fmt.Sprintf("지원되지 않는 카드 타입: %s", card.Type),
			})
			continue
		}
		switch card.Type {
		case models.CardMCQ:
			errs = append(errs, validateMCQ(card, idx)...)
		case models.CardShort:
			errs = append(errs, validateShort(card, idx)...)
		case models.CardOX:
			errs = append(errs, validateOX(card, idx)...)
		case models.CardCloze:
			errs = append(errs, validateCloze(card, idx)...)
		case models.CardOrder:
			errs = append(errs, validateOrder(card, idx)...)
		case models.CardMatch:
			errs = append(errs, validateMatch(card, idx)...)
		}
	}
	return len(errs) == 0, errs
}

func validateMCQ(card models.Card, idx int) []models.ValidationError {
	var errs []models.ValidationError
	if card.MCQ == nil || len(card.MCQ.Options) < 3 {
		return []models.ValidationError{{
			Code:      "mcq_options_length",
			CardIndex: idx,
			Message:   "MCQ는 보기 3개 이상이어야 합니다.",
		}}
	}

	options := make([]string, len(card.MCQ.Options))
	for i, opt := range card.MCQ.Options {
		options[i] = strings.TrimSpace(opt)
	}

	for _, opt := range options {
		if opt == "" {
			errs = append(errs, models.ValidationError{
				Code:      "mcq_option_empty",
				CardIndex: idx,
				Message:   "MCQ 보기에는 빈 항목이 없어야 합니다.",
			})
			break
		}
	}

	literal := map[string]bool{}
	duplicate := false
	for _, opt := range options {
		if literal[opt] {
			duplicate = true
		}
		literal[opt] = true
	}
	if duplicate {
		errs = append(errs, models.ValidationError{
			Code:      "mcq_option_duplicate",
			CardIndex: idx,
			Message:   "MCQ 보기에는 중복이 없어야 합니다.",
		})
	}

	for i, opt := range options {
		for _, marker := range FillerMarkers {
			if strings.Contains(opt, marker) {
				errs = append(errs, models.ValidationError{
					Code:      "mcq_option_filler",
					CardIndex: idx,
					Message:   "MCQ 보기에 자동 생성된 임시 오답이 포함되어 있습니다.",
					Meta:      map[string]interface{}{"option_index": i},
				})
				break
			}
		}
	}

	canonSeen := map[string]int{}
	for i, opt := range options {
		key := canonOption(opt)
		if prev, ok := canonSeen[key]; ok && prev != i {
			errs = append(errs, models.ValidationError{
				Code:      "mcq_option_semantic_duplicate",
				CardIndex: idx,
				Message:   "MCQ 보기에는 동의어/별칭/형태변환(공백/하이픈 등) 중복이 없어야 합니다.",
				Meta:      map[string]interface{}{"duplicate_of": prev, "option_index": i},
			})
		} else {
			canonSeen[key] = i
		}
	}

	answerIndex := card.MCQ.AnswerIndex
	if answerIndex < 0 || answerIndex >= len(options) {
		errs = append(errs, models.ValidationError{
			Code:      "mcq_answer_index",
			CardIndex: idx,
			Message:   "answer_index가 보기 범위 안에 있어야 합니다.",
		})
	} else if explain := strings.TrimSpace(card.Explain); explain != "" {
		if matches := ExplainAnswerPattern.FindStringSubmatch(explain); matches != nil {
			explainAnswer := matches[1]
			selected := options[answerIndex]
			if canonOption(explainAnswer) != canonOption(selected) {
				errs = append(errs, models.ValidationError{
					Code:      "mcq_answer_mismatch",
					CardIndex: idx,
					Message:   fmt.Sprintf("explain에 언급된 정답(%s)과 options[answer_index](%s)가 일치하지 않습니다.", explainAnswer, selected),
					Meta:      map[string]interface{}{"explain_answer": explainAnswer, "selected_option": selected},
				})
			}
		}
	}

	if question := strings.TrimSpace(card.MCQ.Question); question != "" {
		for _, marker := range unnaturalQuestionMarkers {
			if strings.Contains(question, marker) {
				errs = append(errs, models.ValidationError{
					Code:      "mcq_unnatural_question",
					CardIndex: idx,
					Message:   "MCQ 질문이 부자연스럽습니다. '누가 만들었나?', '다음 중 X의 업적은?' 등의 형식을 사용하세요.",
					Meta:      map[string]interface{}{"question": question},
				})
				break
			}
		}
	}
	return errs
}

func validateShort(card models.Card, idx int) []models.ValidationError {
	if card.Short == nil || strings.TrimSpace(card.Short.Answer) == "" {
		return []models.ValidationError{{
			Code:      "short_answer_missing",
			CardIndex: idx,
			Message:   "SHORT 유형은 answer가 반드시 필요합니다.",
		}}
	}
	return nil
}

func validateOX(card models.Card, idx int) []models.ValidationError {
	if card.OX == nil || strings.TrimSpace(card.OX.Statement) == "" {
		return []models.ValidationError{{
			Code:      "ox_statement",
			CardIndex: idx,
			Message:   "OX 진술은 비어 있을 수 없습니다.",
		}}
	}
	return nil
}

func validateCloze(card models.Card, idx int) []models.ValidationError {
	var errs []models.ValidationError
	text := ""
	clozes := map[string]string{}
	if card.Cloze != nil {
		text = card.Cloze.Text
		if card.Cloze.Clozes != nil {
			clozes = card.Cloze.Clozes
		}
	}

	var placeholders []string
	seen := map[string]bool{}
	for _, match := range clozePlaceholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			placeholders = append(placeholders, match[1])
		}
	}

	if len(placeholders) == 0 {
		errs = append(errs, models.ValidationError{
			Code:      "cloze_placeholder_missing",
			CardIndex: idx,
			Message:   "CLOZE 문항에는 {{c1}} 형태의 공백이 최소 1개 있어야 합니다.",
		})
	}
	if len(placeholders) > 2 {
		errs = append(errs, models.ValidationError{
			Code:      "cloze_placeholder_limit",
			CardIndex: idx,
			Message:   "CLOZE 문항은 최대 두 개의 공백만 허용됩니다.",
		})
	}
	for _, placeholder := range placeholders {
		if _, ok := clozes[placeholder]; !ok {
			errs = append(errs, models.ValidationError{
				Code:      "cloze_key_missing",
				CardIndex: idx,
				Message:   fmt.Sprintf("%s 에 해당하는 정답이 clozes에 없습니다.", placeholder),
			})
		}
	}
	var extraKeys []string
	for key := range clozes {
		if !seen[key] {
			extraKeys = append(extraKeys, key)
		}
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		errs = append(errs, models.ValidationError{
			Code:      "cloze_extra_key",
			CardIndex: idx,
			Message:   fmt.Sprintf("%s 키는 텍스트에 존재하지 않습니다.", key),
		})
	}
	return errs
}

func validateOrder(card models.Card, idx int) []models.ValidationError {
	if card.Order == nil || len(card.Order.Items) == 0 || len(card.Order.AnswerOrder) == 0 {
		return []models.ValidationError{{
			Code:      "order_missing",
			CardIndex: idx,
			Message:   "ORDER 문항은 items와 answer_order가 필요합니다.",
		}}
	}
	order := append([]int(nil), card.Order.AnswerOrder...)
	sort.Ints(order)
	permutation := len(order) == len(card.Order.Items)
	for i, v := range order {
		if v != i {
			permutation = false
			break
		}
	}
	if !permutation {
		return []models.ValidationError{{
			Code:      "order_not_permutation",
			CardIndex: idx,
			Message:   "answer_order는 0..n-1 순열이어야 합니다.",
		}}
	}
	return nil
}

func validateMatch(card models.Card, idx int) []models.ValidationError {
	if card.Match == nil || len(card.Match.Left) == 0 || len(card.Match.Right) == 0 || len(card.Match.Pairs) == 0 {
		return []models.ValidationError{{
			Code:      "match_missing",
			CardIndex: idx,
			Message:   "MATCH 문항은 left/right/pairs가 모두 필요합니다.",
		}}
	}

	var errs []models.ValidationError
	usedLeft := map[int]bool{}
	usedRight := map[int]bool{}
	for _, pair := range card.Match.Pairs {
		li, ri := pair[0], pair[1]
		if li < 0 || li >= len(card.Match.Left) {
			errs = append(errs, models.ValidationError{
				Code:      "match_left_range",
				CardIndex: idx,
				Message:   "left 인덱스가 범위를 벗어났습니다.",
			})
		}
		if ri < 0 || ri >= len(card.Match.Right) {
			errs = append(errs, models.ValidationError{
				Code:      "match_right_range",
				CardIndex: idx,
				Message:   "right 인덱스가 범위를 벗어났습니다.",
			})
		}
		if usedLeft[li] || usedRight[ri] {
			errs = append(errs, models.ValidationError{
				Code:      "match_duplicate",
				CardIndex: idx,
				Message:   "하나의 항목은 한 번만 매칭되어야 합니다.",
			})
		}
		usedLeft[li] = true
		usedRight[ri] = true
	}
	return errs
}
