package services

import (
	"strings"

	"cardlab-backend/internal/models"
)

// shrinkCaps limits how much of the fact set each card type sees. Smaller
// prompts keep the oracle inside its per-type token budget.
var shrinkCaps = map[models.CardType]struct{ facts, entities int }{
	models.CardOX:    {2, 2},
	models.CardShort: {2, 2},
	models.CardMCQ:   {3, 2},
	models.CardCloze: {2, 1},
	models.CardOrder: {3, 3},
	models.CardMatch: {4, 3},
}

// NormalizeFacts coerces whatever the extraction oracle produced into the
// canonical fact set. Lists and bare strings are wrapped as facts; entries
// with the wrong shape are dropped, never errored on.
func NormalizeFacts(payload interface{}, highlights []string) models.FactSet {
	fs := models.FactSet{
		Entities: []string{},
		Facts:    []models.Fact{},
		Timeline: []models.TimelineEvent{},
		Triples:  []models.Triple{},
	}

	var obj map[string]interface{}
	switch v := payload.(type) {
	case map[string]interface{}:
		obj = v
	case []interface{}:
		obj = map[string]interface{}{"facts": v}
	case string:
		obj = map[string]interface{}{"facts": []interface{}{v}}
	default:
		obj = map[string]interface{}{}
	}

	for _, e := range asSlice(obj["entities"]) {
		if s := strings.TrimSpace(asString(e)); s != "" {
			fs.Entities = append(fs.Entities, s)
		}
	}

	for _, f := range asSlice(obj["facts"]) {
		switch fv := f.(type) {
		case string:
			if s := strings.TrimSpace(fv); s != "" {
				fs.Facts = append(fs.Facts, models.Fact{Type: "fact", Statement: s})
			}
		case map[string]interface{}:
			stmt := strings.TrimSpace(asString(fv["statement"]))
			if stmt == "" {
				stmt = strings.TrimSpace(asString(fv["text"]))
			}
			if stmt == "" {
				continue
			}
			typ := strings.TrimSpace(asString(fv["type"]))
			if typ == "" {
				typ = "fact"
			}
			fs.Facts = append(fs.Facts, models.Fact{Type: typ, Statement: stmt})
		}
	}

	for _, t := range asSlice(obj["timeline"]) {
		tm, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		label := strings.TrimSpace(asString(tm["label"]))
		if label == "" {
			continue
		}
		ev := models.TimelineEvent{Label: label}
		if year, ok := asInt(tm["year"]); ok {
			y := year
			ev.Year = &y
		}
		fs.Timeline = append(fs.Timeline, ev)
	}

	for _, t := range asSlice(obj["triples"]) {
		tm, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		triple := models.Triple{
			Subject:   strings.TrimSpace(asString(tm["subject"])),
			Predicate: strings.TrimSpace(asString(tm["predicate"])),
			Object:    strings.TrimSpace(asString(tm["object"])),
		}
		if triple.Subject == "" || triple.Predicate == "" || triple.Object == "" {
			continue
		}
		fs.Triples = append(fs.Triples, triple)
	}

	// Highlights double as entities when extraction returned none.
	if len(fs.Entities) == 0 && len(highlights) > 0 {
		for _, h := range highlights {
			if s := strings.TrimSpace(h); s != "" {
				fs.Entities = append(fs.Entities, s)
			}
			if len(fs.Entities) >= 5 {
				break
			}
		}
	}

	return fs
}

// FallbackFacts builds a minimal fact list when extraction produced no
// usable statements: highlights first, else the first content line.
func FallbackFacts(highlights []string, content string) []models.Fact {
	var facts []models.Fact
	seen := map[string]bool{}
	for _, h := range highlights {
		s := strings.TrimSpace(h)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		facts = append(facts, models.Fact{Type: "fact", Statement: s})
		if len(facts) >= 3 {
			break
		}
	}
	if len(facts) > 0 {
		return facts
	}

	line := strings.TrimSpace(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	runes := []rune(line)
	if len(runes) > 140 {
		line = string(runes[:140])
	}
	if line == "" {
		return []models.Fact{}
	}
	return []models.Fact{{Type: "fact", Statement: line}}
}

// ShrinkForType trims the fact set down to what the given card type needs.
// Timeline and triples never go to the oracle on this path; the
// deterministic builders consume them before shrinking happens.
func ShrinkForType(fs models.FactSet, cardType models.CardType) models.FactSet {
	caps, ok := shrinkCaps[cardType]
	if !ok {
		caps = struct{ facts, entities int }{3, 2}
	}

	out := models.FactSet{
		Entities: []string{},
		Facts:    []models.Fact{},
		Timeline: []models.TimelineEvent{},
		Triples:  []models.Triple{},
	}
	for i, f := range fs.Facts {
		if i >= caps.facts {
			break
		}
		out.Facts = append(out.Facts, f)
	}
	for i, e := range fs.Entities {
		if i >= caps.entities {
			break
		}
		out.Entities = append(out.Entities, e)
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		sign := 1
		if s[0] == '-' {
			sign = -1
			s = s[1:]
		}
		val := 0
		for _, ch := range s {
			if ch < '0' || ch > '9' {
				return 0, false
			}
			val = val*10 + int(ch-'0')
		}
		return sign * val, true
	}
	return 0, false
}

func asStringSlice(v interface{}) []string {
	var out []string
	for _, item := range asSlice(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
