package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"cardlab-backend/internal/cache"
	"cardlab-backend/internal/llm"
	"cardlab-backend/internal/models"
)

// Oracle is the generative backend for the three pipeline stages. The
// pipeline treats every response as untrusted; anything it returns goes
// through normalization and validation before a card leaves the service.
type Oracle interface {
	ExtractFacts(ctx context.Context, content string, highlights []string) (llm.Result, error)
	GenerateOne(ctx context.Context, facts models.FactSet, cardType models.CardType, difficulty string) (llm.Result, error)
	GenerateBatch(ctx context.Context, facts models.FactSet, types []models.CardType, difficulty string) (llm.Result, error)
	FixCards(ctx context.Context, cards []models.Card, errs []models.ValidationError) (llm.Result, error)
}

// Models names the per-stage model handles; they participate in the cache
// key so switching models never serves stale cards.
type Models struct {
	Extract  string
	Generate string
	Fix      string
}

type Service struct {
	oracle Oracle
	cache  cache.Cache
	models Models
}

func NewService(oracle Oracle, store cache.Cache, m Models) *Service {
	return &Service{oracle: oracle, cache: store, models: m}
}

type GenerateInput struct {
	Content      string
	Highlights   []string
	Types        []string
	Difficulty   string
	ForceRefresh bool
	FocusMode    string
	Timeline     []models.TimelineEvent
}

type GenerateResult struct {
	Cards []models.Card         `json:"cards"`
	Facts models.FactSet        `json:"facts"`
	Meta  models.GenerationMeta `json:"meta"`
}

// GenerationError reports a card that stayed invalid after every repair
// stage.
type GenerationError struct {
	Errors []models.ValidationError
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("card validation failed with %d errors", len(e.Errors))
}

// ExtractionError reports that the extraction stage produced nothing the
// pipeline can work with.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return "fact extraction failed: " + e.Err.Error()
	}
	return "fact extraction produced no usable facts"
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Generate runs the full pipeline for one request and returns exactly one
// valid card, or a typed error.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	focusMode := strings.ToLower(strings.TrimSpace(in.FocusMode))
	if focusMode != "timeline" {
		focusMode = "highlight"
	}

	cardType := models.CardMCQ
	for _, t := range in.Types {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			cardType = models.CardType(t)
			break
		}
	}
	if focusMode == "timeline" && !models.KnownCardType(cardType) {
		cardType = models.CardMCQ
	}

	difficulty := strings.ToLower(strings.TrimSpace(in.Difficulty))
	if difficulty == "" {
		difficulty = "medium"
	}

	highlights := sanitizeHighlights(in.Highlights, focusMode, cardType)

	key := s.cacheKey(in.Content, highlights, cardType, difficulty, focusMode)
	if !in.ForceRefresh {
		if result, ok := s.readCache(ctx, key); ok {
			return result, nil
		}
	}

	var meta models.GenerationMeta
	addUsage := func(r llm.Result) {
		meta.TokensIn += r.TokensIn
		meta.TokensOut += r.TokensOut
		meta.LatencyMs += r.LatencyMs
	}

	extractResult, err := s.oracle.ExtractFacts(ctx, in.Content, highlights)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	addUsage(extractResult)

	facts := NormalizeFacts(extractResult.Data, highlights)
	if len(facts.Facts) == 0 {
		facts.Facts = FallbackFacts(highlights, in.Content)
	}
	if len(facts.Facts) == 0 {
		return nil, &ExtractionError{}
	}

	applyFocusMode(&facts, focusMode, cardType, highlights, in.Timeline)

	if focusMode == "timeline" {
		if result, done, err := s.timelineCards(ctx, key, cardType, facts, meta); done {
			return result, err
		}
	}

	// Structured facts beat the oracle at ORDER and MATCH; try them on the
	// full fact set before shrinking throws the structure away.
	var deterministic *models.Card
	switch cardType {
	case models.CardOrder:
		deterministic = OrderFromTimeline(facts)
	case models.CardMatch:
		deterministic = MatchFromTriples(facts)
	}
	if deterministic != nil {
		if valid, _ := ValidateCards([]models.Card{*deterministic}); valid {
			return s.finish(ctx, key, []models.Card{*deterministic}, facts, meta)
		}
	}

	factsCompact := ShrinkForType(facts, cardType)

	genResult, err := s.oracle.GenerateOne(ctx, factsCompact, cardType, difficulty)
	if err != nil {
		log.Printf("WARNING: single-type generation failed for %s, falling back to batch call: %v", cardType, err)
		genResult, err = s.oracle.GenerateBatch(ctx, facts, []models.CardType{cardType}, difficulty)
		if err != nil {
			return nil, &GenerationError{Errors: []models.ValidationError{{
				Code:      "llm_invalid_output",
				CardIndex: -1,
				Stage:     "generate",
				Message:   "single-type generation failed",
			}}}
		}
	}
	addUsage(genResult)

	cards := s.decodeCards(genResult.Data, facts, 1)

	valid, errs := ValidateCards(cards)
	if !valid && ApplyLocalFixes(cards, errs) {
		refreshCards(cards, facts)
		valid, errs = ValidateCards(cards)
	}

	if !valid {
		fixResult, fixErr := s.oracle.FixCards(ctx, cards, errs)
		if fixErr != nil {
			return nil, &GenerationError{Errors: []models.ValidationError{{
				Code:      "llm_invalid_output",
				CardIndex: -1,
				Stage:     "fix",
				Message:   "보정 단계 호출이 실패했습니다.",
			}}}
		}
		addUsage(fixResult)
		if fixed := s.decodeCards(fixResult.Data, facts, 1); len(fixed) > 0 {
			cards = fixed
		}
		valid, errs = ValidateCards(cards)
		if !valid && ApplyLocalFixes(cards, errs) {
			refreshCards(cards, facts)
			valid, errs = ValidateCards(cards)
		}
	}

	if !valid {
		return nil, &GenerationError{Errors: errs}
	}
	return s.finish(ctx, key, cards, facts, meta)
}

// timelineCards tries the deterministic timeline builders. done is false
// when no card could be built and the oracle path should run instead.
func (s *Service) timelineCards(ctx context.Context, key string, cardType models.CardType, facts models.FactSet, meta models.GenerationMeta) (*GenerateResult, bool, error) {
	var card *models.Card
	if cardType == models.CardMatch {
		card = MatchFromTimeline(facts.Timeline)
	} else {
		card = TimelineCard(cardType, facts.Timeline)
	}
	if card == nil {
		return nil, false, nil
	}
	cards := []models.Card{*card}
	if valid, errs := ValidateCards(cards); !valid {
		return nil, true, &GenerationError{Errors: errs}
	}
	result, err := s.finish(ctx, key, cards, facts, meta)
	return result, true, err
}

// decodeCards pulls cards out of an oracle payload, normalizes their
// structure and runs the in-process enrichment passes.
func (s *Service) decodeCards(data map[string]interface{}, facts models.FactSet, limit int) []models.Card {
	raw := asSlice(data["cards"])
	var cards []models.Card
	for _, item := range raw {
		if len(cards) >= limit {
			break
		}
		card := NormalizeCardStructure(item)
		SanitizeMatchRight(&card)
		FillClozeFromFacts(&card, facts)
		cards = append(cards, card)
	}
	return cards
}

// refreshCards re-runs the enrichment passes after a repair changed card
// contents.
func refreshCards(cards []models.Card, facts models.FactSet) {
	for i := range cards {
		SanitizeMatchRight(&cards[i])
		FillClozeFromFacts(&cards[i], facts)
	}
}

func (s *Service) finish(ctx context.Context, key string, cards []models.Card, facts models.FactSet, meta models.GenerationMeta) (*GenerateResult, error) {
	result := &GenerateResult{Cards: cards, Facts: facts, Meta: meta}
	payload, err := json.Marshal(result)
	if err == nil {
		if err := s.cache.Set(ctx, key, payload); err != nil {
			log.Printf("WARNING: cache write failed for %s: %v", key, err)
		}
	}
	return result, nil
}

func (s *Service) readCache(ctx context.Context, key string) (*GenerateResult, bool) {
	payload, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var result GenerateResult
	if err := json.Unmarshal(payload, &result); err != nil {
		log.Printf("WARNING: dropping undecodable cache entry %s: %v", key, err)
		return nil, false
	}
	result.Meta = models.GenerationMeta{Cached: true}
	return &result, true
}

// cacheKey hashes the normalized request. Map marshaling sorts keys, so the
// same request always produces the same bytes.
func (s *Service) cacheKey(content string, highlights []string, cardType models.CardType, difficulty, focusMode string) string {
	types := []string{string(cardType)}
	sort.Strings(types)
	payload, _ := json.Marshal(map[string]interface{}{
		"content":        strings.TrimSpace(content),
		"highlights":     highlights,
		"types":          types,
		"difficulty":     difficulty,
		"focus_mode":     focusMode,
		"extract_model":  s.models.Extract,
		"generate_model": s.models.Generate,
		"fix_model":      s.models.Fix,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// sanitizeHighlights dedupes case-insensitively and caps the count: one
// highlight per request, except MATCH which pairs several selections.
func sanitizeHighlights(source []string, focusMode string, cardType models.CardType) []string {
	if focusMode != "highlight" {
		return []string{}
	}
	limit := 1
	if cardType == models.CardMatch {
		limit = 10
	}
	clean := []string{}
	seen := map[string]bool{}
	for _, item := range source {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		clean = append(clean, trimmed)
		if len(clean) >= limit {
			break
		}
	}
	return clean
}

// applyFocusMode narrows the fact set to the requested focus. Highlight
// mode pins the facts to the selected token; timeline mode keeps only the
// timeline, preferring caller-provided events over extracted ones.
func applyFocusMode(facts *models.FactSet, focusMode string, cardType models.CardType, highlights []string, timeline []models.TimelineEvent) {
	switch focusMode {
	case "highlight":
		if len(highlights) == 0 {
			return
		}
		if cardType != models.CardMatch {
			target := strings.ToLower(highlights[0])
			var filtered []models.Fact
			for _, f := range facts.Facts {
				if strings.Contains(strings.ToLower(f.Statement), target) {
					filtered = append(filtered, f)
					break
				}
			}
			if len(filtered) == 0 && len(facts.Facts) > 0 {
				filtered = facts.Facts[:1]
			}
			if len(filtered) == 0 || strings.TrimSpace(filtered[0].Statement) == "" {
				filtered = []models.Fact{{Type: "fact", Statement: highlights[0]}}
			}
			facts.Facts = filtered
			facts.Entities = []string{highlights[0]}
		} else {
			facts.Entities = append([]string{}, highlights...)
		}
		facts.Timeline = []models.TimelineEvent{}
	case "timeline":
		facts.Entities = []string{}
		facts.Facts = []models.Fact{}
		// A caller-provided timeline replaces the extracted one outright,
		// even when no entry survives the year/label filter; extraction
		// output never backfills bad caller input.
		if len(timeline) > 0 {
			clean := []models.TimelineEvent{}
			for _, ev := range timeline {
				label := strings.TrimSpace(ev.Label)
				if ev.Year == nil || label == "" {
					continue
				}
				clean = append(clean, models.TimelineEvent{Year: ev.Year, Label: label})
			}
			facts.Timeline = clean
		}
	}
}
