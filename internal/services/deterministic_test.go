package services

import (
	"reflect"
	"strings"
	"testing"

	"cardlab-backend/internal/models"
)

func intp(v int) *int { return &v }

func sampleTimeline() []models.TimelineEvent {
	return []models.TimelineEvent{
		{Year: intp(1446), Label: "훈민정음 반포"},
		{Year: intp(1392), Label: "조선 건국"},
		{Year: intp(1443), Label: "훈민정음 창제"},
		{Label: "연도 미상 사건"},
	}
}

func TestOrderFromTimeline(t *testing.T) {
	card := OrderFromTimeline(models.FactSet{Timeline: sampleTimeline()})
	if card == nil || card.Order == nil {
		t.Fatal("expected an ORDER card")
	}
	expected := []string{"조선 건국", "훈민정음 창제", "훈민정음 반포"}
	if !reflect.DeepEqual(card.Order.Items, expected) {
		t.Errorf("items should sort by year: %v", card.Order.Items)
	}
	if !reflect.DeepEqual(card.Order.AnswerOrder, []int{0, 1, 2}) {
		t.Errorf("pre-sorted items need identity order: %v", card.Order.AnswerOrder)
	}

	if valid, errs := ValidateCards([]models.Card{*card}); !valid {
		t.Errorf("deterministic ORDER must validate, got %+v", errs)
	}
}

func TestOrderFromTimelineTooThin(t *testing.T) {
	fs := models.FactSet{Timeline: []models.TimelineEvent{
		{Year: intp(1443), Label: "훈민정음 창제"},
		{Year: intp(1446), Label: "훈민정음 반포"},
		{Label: "연도 없는 사건"},
	}}
	if card := OrderFromTimeline(fs); card != nil {
		t.Errorf("two dated events are not enough, got %+v", card)
	}
}

func TestOrderFromTimelineLabelCap(t *testing.T) {
	long := strings.Repeat("가", 30)
	fs := models.FactSet{Timeline: []models.TimelineEvent{
		{Year: intp(1), Label: long},
		{Year: intp(2), Label: "둘째"},
		{Year: intp(3), Label: "셋째"},
	}}
	card := OrderFromTimeline(fs)
	if card == nil {
		t.Fatal("expected card")
	}
	if len([]rune(card.Order.Items[0])) != 24 {
		t.Errorf("labels should trim to 24 runes, got %d", len([]rune(card.Order.Items[0])))
	}
}

func TestMatchFromTriples(t *testing.T) {
	fs := models.FactSet{Triples: []models.Triple{
		{Subject: "세종대왕", Predicate: "창제", Object: "훈민정음"},
		{Subject: "세종대왕", Predicate: "발명", Object: "측우기"},
		{Subject: "정약용", Predicate: "설계", Object: "거중기"},
		{Subject: "장영실", Predicate: "제작", Object: "자격루"},
	}}
	card := MatchFromTriples(fs)
	if card == nil || card.Match == nil {
		t.Fatal("expected a MATCH card")
	}
	if card.Match.Right[0] != "창제: 훈민정음" {
		t.Errorf("right label should be predicate: object, got %q", card.Match.Right[0])
	}
	// 세종대왕 appears twice on the left but one-to-one pairing keeps only
	// its first relation.
	if len(card.Match.Left) != 3 {
		t.Errorf("left side should dedupe subjects: %v", card.Match.Left)
	}
	if len(card.Match.Pairs) != 3 {
		t.Errorf("expected 3 one-to-one pairs, got %v", card.Match.Pairs)
	}

	if valid, errs := ValidateCards([]models.Card{*card}); !valid {
		t.Errorf("deterministic MATCH must validate, got %+v", errs)
	}
}

func TestMatchFromTriplesTooFew(t *testing.T) {
	fs := models.FactSet{Triples: []models.Triple{
		{Subject: "a", Predicate: "b", Object: "c"},
		{Subject: "d", Predicate: "e", Object: "f"},
	}}
	if card := MatchFromTriples(fs); card != nil {
		t.Errorf("two triples are not enough, got %+v", card)
	}
}

func TestMatchFromTimeline(t *testing.T) {
	card := MatchFromTimeline(sampleTimeline())
	if card == nil || card.Match == nil {
		t.Fatal("expected a MATCH card")
	}
	if card.Match.Left[0] != "1392" || card.Match.Right[0] != "조선 건국" {
		t.Errorf("years should pair with labels in order: %v / %v", card.Match.Left, card.Match.Right)
	}
	if !reflect.DeepEqual(card.Match.Pairs, [][2]int{{0, 0}, {1, 1}, {2, 2}}) {
		t.Errorf("expected identity pairs, got %v", card.Match.Pairs)
	}

	if valid, errs := ValidateCards([]models.Card{*card}); !valid {
		t.Errorf("timeline MATCH must validate, got %+v", errs)
	}
}

func TestTimelineCardMCQ(t *testing.T) {
	events := []models.TimelineEvent{{Year: intp(1443), Label: "훈민정음 창제"}}
	card := TimelineCard(models.CardMCQ, events)
	if card == nil || card.MCQ == nil {
		t.Fatal("expected MCQ card")
	}
	if card.MCQ.Question != "훈민정음은 창제한 연도는?" {
		t.Errorf("unexpected question: %q", card.MCQ.Question)
	}
	if card.MCQ.Options[0] != "1443" || card.MCQ.AnswerIndex != 0 {
		t.Errorf("first option must be the true year: %v", card.MCQ.Options)
	}
	if len(card.MCQ.Options) != 3 {
		t.Errorf("expected 3 year options, got %v", card.MCQ.Options)
	}
	for i, opt := range card.MCQ.Options {
		for j, other := range card.MCQ.Options {
			if i != j && opt == other {
				t.Errorf("duplicate year options: %v", card.MCQ.Options)
			}
		}
	}
	if card.Explain != "1443 훈민정음 창제" {
		t.Errorf("unexpected explain: %q", card.Explain)
	}
}

func TestTimelineCardOXUsesCreator(t *testing.T) {
	events := []models.TimelineEvent{{Year: intp(1443), Label: "훈민정음 창제"}}
	card := TimelineCard(models.CardOX, events)
	if card == nil || card.OX == nil {
		t.Fatal("expected OX card")
	}
	if card.OX.Statement != "세종대왕은 1443년에 훈민정음을 창제하였다." {
		t.Errorf("unexpected statement: %q", card.OX.Statement)
	}
	if !card.OX.Answer {
		t.Error("timeline OX statements are true by construction")
	}
}

func TestTimelineCardCloze(t *testing.T) {
	events := []models.TimelineEvent{{Year: intp(1443), Label: "훈민정음 창제"}}
	card := TimelineCard(models.CardCloze, events)
	if card == nil || card.Cloze == nil {
		t.Fatal("expected CLOZE card")
	}
	if card.Cloze.Text != "세종대왕은 {{c1}}년에 훈민정음을 창제하였다." {
		t.Errorf("unexpected text: %q", card.Cloze.Text)
	}
	if card.Cloze.Clozes["c1"] != "1443" {
		t.Errorf("placeholder must hold the year: %v", card.Cloze.Clozes)
	}

	if valid, errs := ValidateCards([]models.Card{*card}); !valid {
		t.Errorf("timeline CLOZE must validate, got %+v", errs)
	}
}

func TestTimelineCardUnsupported(t *testing.T) {
	events := []models.TimelineEvent{{Year: intp(1443), Label: "훈민정음 창제"}}
	if card := TimelineCard(models.CardOrder, events); card != nil {
		t.Errorf("ORDER has its own builder, got %+v", card)
	}
	if card := TimelineCard(models.CardMCQ, nil); card != nil {
		t.Errorf("no events should yield nil, got %+v", card)
	}
}

func TestSplitLabelAndParticles(t *testing.T) {
	tests := []struct {
		label   string
		subject string
		action  string
	}{
		{"훈민정음 창제", "훈민정음", "창제"},
		{"조선 건국", "이성계", "조선을 건국"},
		{"경복궁창건", "경복궁", "창건"},
		{"임진왜란 발발", "임진왜란", "발발"},
		{"단일어", "단일어", ""},
	}
	for _, tc := range tests {
		subject, action := splitLabel(tc.label)
		if subject != tc.subject || action != tc.action {
			t.Errorf("splitLabel(%q) = (%q, %q), expected (%q, %q)",
				tc.label, subject, action, tc.subject, tc.action)
		}
	}

	if topicParticle("훈민정음") != "은" {
		t.Error("받침 ending should take 은")
	}
	if topicParticle("세조") != "는" {
		t.Error("open syllable should take 는")
	}
	if subjectParticle("세종대왕") != "이" || subjectParticle("세조") != "가" {
		t.Error("subject particle mismatch")
	}
}
