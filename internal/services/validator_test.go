package services

import (
	"testing"

	"cardlab-backend/internal/models"
)

func errorCodes(errs []models.ValidationError) map[string]bool {
	codes := map[string]bool{}
	for _, e := range errs {
		codes[e.Code] = true
	}
	return codes
}

func validMCQ() models.Card {
	return models.Card{
		Type:    models.CardMCQ,
		Explain: "세종대왕이 훈민정음을 창제하였다.",
		MCQ: &models.MCQCard{
			Question:    "세종대왕이 창제한 문자는?",
			Options:     []string{"훈민정음", "천자문", "이두", "향찰"},
			AnswerIndex: 0,
		},
	}
}

func TestValidateCardsEmptyList(t *testing.T) {
	valid, errs := ValidateCards(nil)
	if valid {
		t.Fatal("empty card list must be invalid")
	}
	if len(errs) != 1 || errs[0].Code != "invalid_cards" || errs[0].CardIndex != -1 {
		t.Errorf("expected payload-level invalid_cards, got %+v", errs)
	}
}

func TestValidateCardsUnknownType(t *testing.T) {
	valid, errs := ValidateCards([]models.Card{{Type: "ESSAY"}})
	if valid || !errorCodes(errs)["unknown_type"] {
		t.Errorf("expected unknown_type, got %+v", errs)
	}
}

func TestValidateMCQ(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.Card)
		expected string
	}{
		{
			"too few options",
			func(c *models.Card) { c.MCQ.Options = c.MCQ.Options[:2] },
			"mcq_options_length",
		},
		{
			"empty option",
			func(c *models.Card) { c.MCQ.Options[2] = "  " },
			"mcq_option_empty",
		},
		{
			"literal duplicate",
			func(c *models.Card) { c.MCQ.Options[3] = "천자문" },
			"mcq_option_duplicate",
		},
		{
			"semantic duplicate via alias",
			func(c *models.Card) {
				c.MCQ.Options = []string{"훈민정음", "한글", "천자문", "이두"}
				c.Explain = ""
			},
			"mcq_option_semantic_duplicate",
		},
		{
			"semantic duplicate via spacing",
			func(c *models.Card) {
				c.MCQ.Options = []string{"경국대전", "경국 대전", "동국통감", "국조오례의"}
				c.Explain = ""
			},
			"mcq_option_semantic_duplicate",
		},
		{
			"filler option",
			func(c *models.Card) { c.MCQ.Options[3] = "자동 생성 오답 4" },
			"mcq_option_filler",
		},
		{
			"answer index out of range",
			func(c *models.Card) { c.MCQ.AnswerIndex = 9 },
			"mcq_answer_index",
		},
		{
			"explain answer mismatch",
			func(c *models.Card) { c.MCQ.AnswerIndex = 1 },
			"mcq_answer_mismatch",
		},
		{
			"unnatural question",
			func(c *models.Card) { c.MCQ.Question = "훈민정음이란?" },
			"mcq_unnatural_question",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			card := validMCQ()
			tc.mutate(&card)
			valid, errs := ValidateCards([]models.Card{card})
			if valid {
				t.Fatal("expected invalid card")
			}
			if !errorCodes(errs)[tc.expected] {
				t.Errorf("expected code %s, got %+v", tc.expected, errs)
			}
		})
	}

	valid, errs := ValidateCards([]models.Card{validMCQ()})
	if !valid {
		t.Errorf("expected valid MCQ, got %+v", errs)
	}
}

func TestValidateExplainAnswerMatchesAlias(t *testing.T) {
	// 한글 in explain and 훈민정음 as the selected option canonicalize to the
	// same key, so no mismatch is reported.
	card := models.Card{
		Type:    models.CardMCQ,
		Explain: "세종대왕이 한글을 창제하였다.",
		MCQ: &models.MCQCard{
			Question:    "세종대왕이 창제한 문자는?",
			Options:     []string{"훈민정음", "천자문", "이두", "향찰"},
			AnswerIndex: 0,
		},
	}
	valid, errs := ValidateCards([]models.Card{card})
	if !valid {
		t.Errorf("alias-equivalent explain answer should pass, got %+v", errs)
	}
}

func TestValidateShortAndOX(t *testing.T) {
	valid, errs := ValidateCards([]models.Card{{
		Type:  models.CardShort,
		Short: &models.ShortCard{Prompt: "조선의 기본 법전은?", Answer: " "},
	}})
	if valid || !errorCodes(errs)["short_answer_missing"] {
		t.Errorf("expected short_answer_missing, got %+v", errs)
	}

	valid, errs = ValidateCards([]models.Card{{
		Type: models.CardOX,
		OX:   &models.OXCard{Statement: "", Answer: true},
	}})
	if valid || !errorCodes(errs)["ox_statement"] {
		t.Errorf("expected ox_statement, got %+v", errs)
	}
}

func TestValidateCloze(t *testing.T) {
	tests := []struct {
		name     string
		card     models.ClozeCard
		expected string
	}{
		{
			"no placeholder",
			models.ClozeCard{Text: "빈칸이 없는 문장.", Clozes: map[string]string{}},
			"cloze_placeholder_missing",
		},
		{
			"too many placeholders",
			models.ClozeCard{
				Text:   "{{c1}} {{c2}} {{c3}}",
				Clozes: map[string]string{"c1": "a", "c2": "b", "c3": "c"},
			},
			"cloze_placeholder_limit",
		},
		{
			"key missing",
			models.ClozeCard{Text: "{{c1}}은 문자이다.", Clozes: map[string]string{}},
			"cloze_key_missing",
		},
		{
			"extra key",
			models.ClozeCard{
				Text:   "{{c1}}은 문자이다.",
				Clozes: map[string]string{"c1": "훈민정음", "c9": "잉여"},
			},
			"cloze_extra_key",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cloze := tc.card
			valid, errs := ValidateCards([]models.Card{{Type: models.CardCloze, Cloze: &cloze}})
			if valid || !errorCodes(errs)[tc.expected] {
				t.Errorf("expected %s, got %+v", tc.expected, errs)
			}
		})
	}

	valid, errs := ValidateCards([]models.Card{{
		Type: models.CardCloze,
		Cloze: &models.ClozeCard{
			Text:   "세종대왕은 {{c1}}년에 훈민정음을 창제하였다.",
			Clozes: map[string]string{"c1": "1443"},
		},
	}})
	if !valid {
		t.Errorf("expected valid CLOZE, got %+v", errs)
	}
}

func TestValidateOrder(t *testing.T) {
	valid, errs := ValidateCards([]models.Card{{
		Type:  models.CardOrder,
		Order: &models.OrderCard{Items: []string{"a", "b"}},
	}})
	if valid || !errorCodes(errs)["order_missing"] {
		t.Errorf("expected order_missing, got %+v", errs)
	}

	valid, errs = ValidateCards([]models.Card{{
		Type:  models.CardOrder,
		Order: &models.OrderCard{Items: []string{"a", "b", "c"}, AnswerOrder: []int{0, 0, 2}},
	}})
	if valid || !errorCodes(errs)["order_not_permutation"] {
		t.Errorf("expected order_not_permutation, got %+v", errs)
	}

	valid, errs = ValidateCards([]models.Card{{
		Type:  models.CardOrder,
		Order: &models.OrderCard{Items: []string{"a", "b", "c"}, AnswerOrder: []int{2, 0, 1}},
	}})
	if !valid {
		t.Errorf("any permutation should pass, got %+v", errs)
	}
}

func TestValidateMatch(t *testing.T) {
	valid, errs := ValidateCards([]models.Card{{
		Type:  models.CardMatch,
		Match: &models.MatchCard{Left: []string{"a"}, Right: []string{}, Pairs: [][2]int{{0, 0}}},
	}})
	if valid || !errorCodes(errs)["match_missing"] {
		t.Errorf("expected match_missing, got %+v", errs)
	}

	valid, errs = ValidateCards([]models.Card{{
		Type: models.CardMatch,
		Match: &models.MatchCard{
			Left:  []string{"a", "b"},
			Right: []string{"x", "y"},
			Pairs: [][2]int{{0, 5}},
		},
	}})
	if valid || !errorCodes(errs)["match_right_range"] {
		t.Errorf("expected match_right_range, got %+v", errs)
	}

	valid, errs = ValidateCards([]models.Card{{
		Type: models.CardMatch,
		Match: &models.MatchCard{
			Left:  []string{"a", "b"},
			Right: []string{"x", "y"},
			Pairs: [][2]int{{0, 0}, {0, 1}},
		},
	}})
	if valid || !errorCodes(errs)["match_duplicate"] {
		t.Errorf("expected match_duplicate, got %+v", errs)
	}

	valid, errs = ValidateCards([]models.Card{{
		Type: models.CardMatch,
		Match: &models.MatchCard{
			Left:  []string{"훈민정음", "측우기"},
			Right: []string{"한국 고유 문자", "강우량 측정 기구"},
			Pairs: [][2]int{{0, 0}, {1, 1}},
		},
	}})
	if !valid {
		t.Errorf("expected valid MATCH, got %+v", errs)
	}
}
