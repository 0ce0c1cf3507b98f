package services

import (
	"regexp"
	"strconv"
	"strings"

	"cardlab-backend/internal/models"
)

var clozePlaceholderPattern = regexp.MustCompile(`\{\{(c\d+)\}\}`)

// NormalizeCardStructure coerces one raw oracle card into the typed union.
// The oracle mixes up field names constantly (answer vs answer_index,
// question vs prompt, explanation vs explain), so every known variant is
// mapped here before validation ever sees the card. Returns a zero-type
// card when the input is not an object; the validator rejects that.
func NormalizeCardStructure(raw interface{}) models.Card {
	obj := asMap(raw)
	if obj == nil {
		return models.Card{}
	}

	cardType := models.CardType(strings.ToUpper(strings.TrimSpace(asString(obj["type"]))))
	card := models.Card{Type: cardType, Explain: pickExplain(obj)}

	switch cardType {
	case models.CardMCQ:
		card.MCQ = normalizeMCQ(obj)
	case models.CardShort:
		card.Short = normalizeShort(obj)
	case models.CardOX:
		card.OX = normalizeOX(obj)
	case models.CardCloze:
		card.Cloze = normalizeCloze(obj)
	case models.CardOrder:
		card.Order = normalizeOrder(obj)
	case models.CardMatch:
		card.Match = normalizeMatch(obj)
	}
	return card
}

func pickExplain(obj map[string]interface{}) string {
	if s := strings.TrimSpace(asString(obj["explain"])); s != "" {
		return s
	}
	return strings.TrimSpace(asString(obj["explanation"]))
}

func normalizeMCQ(obj map[string]interface{}) *models.MCQCard {
	mcq := &models.MCQCard{Question: strings.TrimSpace(asString(obj["question"]))}
	if mcq.Question == "" {
		mcq.Question = strings.TrimSpace(asString(obj["prompt"]))
	}

	for _, opt := range asSlice(obj["options"]) {
		mcq.Options = append(mcq.Options, strings.TrimSpace(stringify(opt)))
	}

	if idx, ok := asInt(obj["answer_index"]); ok {
		mcq.AnswerIndex = idx
	}

	// Oracle sometimes gives the answer as text rather than an index.
	if answer := strings.TrimSpace(asString(obj["answer"])); answer != "" {
		found := -1
		for i, opt := range mcq.Options {
			if opt == answer {
				found = i
				break
			}
		}
		if found >= 0 {
			mcq.AnswerIndex = found
		} else {
			mcq.Options = append(mcq.Options, answer)
			mcq.AnswerIndex = len(mcq.Options) - 1
		}
	}
	return mcq
}

func normalizeShort(obj map[string]interface{}) *models.ShortCard {
	short := &models.ShortCard{
		Prompt: strings.TrimSpace(asString(obj["prompt"])),
		Answer: strings.TrimSpace(asString(obj["answer"])),
	}
	if short.Prompt == "" {
		short.Prompt = strings.TrimSpace(asString(obj["question"]))
	}

	var aliases []string
	if rubric := asMap(obj["rubric"]); rubric != nil {
		aliases = asStringSlice(rubric["aliases"])
	}
	if aliases == nil {
		// Flattened key produced by some model revisions.
		aliases = asStringSlice(obj["rubric.aliases"])
	}
	seen := map[string]bool{}
	for _, a := range aliases {
		a = normalizeAlias(a)
		if a == "" || a == short.Answer || seen[a] {
			continue
		}
		seen[a] = true
		short.Aliases = append(short.Aliases, a)
	}
	return short
}

var (
	aliasBracketPattern = regexp.MustCompile(`[\(\)\[\]\{\}]`)
	aliasSpacePattern   = regexp.MustCompile(`\s+`)
)

// normalizeAlias strips brackets and all whitespace so rubric aliases
// compare by content only.
func normalizeAlias(value string) string {
	cleaned := aliasBracketPattern.ReplaceAllString(value, "")
	return aliasSpacePattern.ReplaceAllString(cleaned, "")
}

func normalizeOX(obj map[string]interface{}) *models.OXCard {
	ox := &models.OXCard{Statement: strings.TrimSpace(asString(obj["statement"]))}
	if ox.Statement == "" {
		ox.Statement = strings.TrimSpace(asString(obj["question"]))
	}
	switch v := obj["answer"].(type) {
	case bool:
		ox.Answer = v
	case string:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "O", "TRUE", "T", "Y", "1":
			ox.Answer = true
		}
	}
	return ox
}

func normalizeCloze(obj map[string]interface{}) *models.ClozeCard {
	cloze := &models.ClozeCard{
		Text:   strings.TrimSpace(asString(obj["text"])),
		Clozes: map[string]string{},
	}
	if cloze.Text == "" {
		cloze.Text = strings.TrimSpace(asString(obj["question"]))
	}

	if raw := asMap(obj["clozes"]); raw != nil {
		for k, v := range raw {
			cloze.Clozes[k] = strings.TrimSpace(stringify(v))
		}
	}

	// Backfill placeholders from the alternate answer keys the oracle
	// sometimes emits instead of a clozes object.
	answers := asSlice(obj["answers"])
	answerValue := asString(obj["answer"])
	aliasValues := asStringSlice(obj["rubric.aliases"])

	placeholders := clozePlaceholderPattern.FindAllStringSubmatch(cloze.Text, -1)
	for idx, match := range placeholders {
		placeholder := match[1]
		if existing, ok := cloze.Clozes[placeholder]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		value := ""
		switch {
		case idx < len(answers):
			value = strings.TrimSpace(stringify(answers[idx]))
		case strings.TrimSpace(answerValue) != "":
			value = strings.TrimSpace(answerValue)
		case len(aliasValues) > 0:
			value = strings.TrimSpace(aliasValues[0])
		}
		cloze.Clozes[placeholder] = value
	}
	return cloze
}

func normalizeOrder(obj map[string]interface{}) *models.OrderCard {
	order := &models.OrderCard{}
	items := asSlice(obj["items"])
	if items == nil {
		items = asSlice(obj["answers"])
	}
	for _, item := range items {
		order.Items = append(order.Items, strings.TrimSpace(stringify(item)))
	}

	for _, v := range asSlice(obj["answer_order"]) {
		if n, ok := asInt(v); ok {
			order.AnswerOrder = append(order.AnswerOrder, n)
		}
	}
	if len(order.AnswerOrder) == 0 && len(order.Items) > 0 {
		for i := range order.Items {
			order.AnswerOrder = append(order.AnswerOrder, i)
		}
	}
	return order
}

func normalizeMatch(obj map[string]interface{}) *models.MatchCard {
	match := &models.MatchCard{Pairs: [][2]int{}}
	leftIndex := map[string]int{}
	rightIndex := map[string]int{}

	for _, item := range asSlice(obj["left"]) {
		text := strings.TrimSpace(asString(item))
		if text == "" || len(match.Left) >= 4 {
			continue
		}
		if _, dup := leftIndex[text]; dup {
			continue
		}
		leftIndex[text] = len(match.Left)
		match.Left = append(match.Left, text)
	}
	for _, item := range asSlice(obj["right"]) {
		text := strings.TrimSpace(asString(item))
		if text == "" || len(match.Right) >= 4 {
			continue
		}
		if _, dup := rightIndex[text]; dup {
			continue
		}
		rightIndex[text] = len(match.Right)
		match.Right = append(match.Right, text)
	}

	// Pair members may be indices into left/right or literal item text; text
	// not seen before is appended while room remains.
	ensure := func(value interface{}, items *[]string, index map[string]int) (int, bool) {
		if n, ok := value.(float64); ok {
			idx := int(n)
			if idx >= 0 && idx < len(*items) {
				return idx, true
			}
			return 0, false
		}
		text := strings.TrimSpace(asString(value))
		if text == "" {
			return 0, false
		}
		if i, ok := index[text]; ok {
			return i, true
		}
		if len(*items) >= 4 {
			return 0, false
		}
		index[text] = len(*items)
		*items = append(*items, text)
		return index[text], true
	}

	usedLeft := map[int]bool{}
	usedRight := map[int]bool{}
	for _, rawPair := range asSlice(obj["pairs"]) {
		var leftVal, rightVal interface{}
		switch pv := rawPair.(type) {
		case []interface{}:
			if len(pv) != 2 {
				continue
			}
			leftVal, rightVal = pv[0], pv[1]
		case map[string]interface{}:
			leftVal = pv["left"]
			if leftVal == nil {
				leftVal = pv["index"]
			}
			rightVal = pv["right"]
		default:
			continue
		}
		li, ok := ensure(leftVal, &match.Left, leftIndex)
		if !ok {
			continue
		}
		ri, ok := ensure(rightVal, &match.Right, rightIndex)
		if !ok {
			continue
		}
		if usedLeft[li] || usedRight[ri] {
			continue
		}
		usedLeft[li] = true
		usedRight[ri] = true
		match.Pairs = append(match.Pairs, [2]int{li, ri})
		if len(match.Pairs) >= 4 {
			break
		}
	}
	return match
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}
