package models

import (
	"encoding/json"
	"fmt"
)

type CardType string

const (
	CardMCQ   CardType = "MCQ"
	CardShort CardType = "SHORT"
	CardOX    CardType = "OX"
	CardCloze CardType = "CLOZE"
	CardOrder CardType = "ORDER"
	CardMatch CardType = "MATCH"
)

var cardTypes = map[CardType]bool{
	CardMCQ:   true,
	CardShort: true,
	CardOX:    true,
	CardCloze: true,
	CardOrder: true,
	CardMatch: true,
}

// KnownCardType reports whether t is one of the six supported card types.
func KnownCardType(t CardType) bool {
	return cardTypes[t]
}

type MCQCard struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

type ShortCard struct {
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Aliases []string `json:"aliases"`
}

type OXCard struct {
	Statement string `json:"statement"`
	Answer    bool   `json:"answer"`
}

type ClozeCard struct {
	Text   string            `json:"text"`
	Clozes map[string]string `json:"clozes"`
}

type OrderCard struct {
	Items       []string `json:"items"`
	AnswerOrder []int    `json:"answer_order"`
}

type MatchCard struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
	Pairs [][2]int `json:"pairs"`
}

// Card is a discriminated union over the supported card types. Exactly one
// variant pointer is set for a well-formed card; the structure normalizer is
// the only producer, so downstream code never touches raw oracle maps.
type Card struct {
	Type    CardType
	Explain string

	MCQ   *MCQCard
	Short *ShortCard
	OX    *OXCard
	Cloze *ClozeCard
	Order *OrderCard
	Match *MatchCard
}

// MarshalJSON flattens the union into the wire shape, emitting only the
// fields defined for the card's type. Serving double duty as the sanitize
// step: anything the oracle added beyond the schema never survives here.
func (c Card) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"type": string(c.Type)}
	switch c.Type {
	case CardMCQ:
		if c.MCQ != nil {
			out["question"] = c.MCQ.Question
			out["options"] = emptyIfNil(c.MCQ.Options)
			out["answer_index"] = c.MCQ.AnswerIndex
		}
		if c.Explain != "" {
			out["explain"] = c.Explain
		}
	case CardShort:
		if c.Short != nil {
			out["prompt"] = c.Short.Prompt
			out["answer"] = c.Short.Answer
			out["rubric"] = map[string]interface{}{"aliases": emptyIfNil(c.Short.Aliases)}
		}
	case CardOX:
		if c.OX != nil {
			out["statement"] = c.OX.Statement
			out["answer"] = c.OX.Answer
		}
		if c.Explain != "" {
			out["explain"] = c.Explain
		}
	case CardCloze:
		if c.Cloze != nil {
			out["text"] = c.Cloze.Text
			clozes := c.Cloze.Clozes
			if clozes == nil {
				clozes = map[string]string{}
			}
			out["clozes"] = clozes
		}
		if c.Explain != "" {
			out["explain"] = c.Explain
		}
	case CardOrder:
		if c.Order != nil {
			out["items"] = emptyIfNil(c.Order.Items)
			order := c.Order.AnswerOrder
			if order == nil {
				order = []int{}
			}
			out["answer_order"] = order
		}
		if c.Explain != "" {
			out["explain"] = c.Explain
		}
	case CardMatch:
		if c.Match != nil {
			out["left"] = emptyIfNil(c.Match.Left)
			out["right"] = emptyIfNil(c.Match.Right)
			pairs := c.Match.Pairs
			if pairs == nil {
				pairs = [][2]int{}
			}
			out["pairs"] = pairs
		}
		if c.Explain != "" {
			out["explain"] = c.Explain
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads back the canonical wire shape produced by MarshalJSON.
// It is intentionally strict; recovering loose oracle output is the
// structure normalizer's job, not this decoder's.
func (c *Card) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type        CardType `json:"type"`
		Explain     string   `json:"explain"`
		Question    string   `json:"question"`
		Options     []string `json:"options"`
		AnswerIndex *int     `json:"answer_index"`
		Prompt      string   `json:"prompt"`
		Rubric      *struct {
			Aliases []string `json:"aliases"`
		} `json:"rubric"`
		Statement   string            `json:"statement"`
		Answer      json.RawMessage   `json:"answer"`
		Text        string            `json:"text"`
		Clozes      map[string]string `json:"clozes"`
		Items       []string          `json:"items"`
		AnswerOrder []int             `json:"answer_order"`
		Left        []string          `json:"left"`
		Right       []string          `json:"right"`
		Pairs       [][2]int          `json:"pairs"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*c = Card{Type: aux.Type, Explain: aux.Explain}
	switch aux.Type {
	case CardMCQ:
		idx := 0
		if aux.AnswerIndex != nil {
			idx = *aux.AnswerIndex
		}
		c.MCQ = &MCQCard{Question: aux.Question, Options: aux.Options, AnswerIndex: idx}
	case CardShort:
		var answer string
		if len(aux.Answer) > 0 {
			json.Unmarshal(aux.Answer, &answer)
		}
		short := &ShortCard{Prompt: aux.Prompt, Answer: answer}
		if aux.Rubric != nil {
			short.Aliases = aux.Rubric.Aliases
		}
		c.Short = short
	case CardOX:
		var answer bool
		if len(aux.Answer) > 0 {
			json.Unmarshal(aux.Answer, &answer)
		}
		c.OX = &OXCard{Statement: aux.Statement, Answer: answer}
	case CardCloze:
		c.Cloze = &ClozeCard{Text: aux.Text, Clozes: aux.Clozes}
	case CardOrder:
		c.Order = &OrderCard{Items: aux.Items, AnswerOrder: aux.AnswerOrder}
	case CardMatch:
		c.Match = &MatchCard{Left: aux.Left, Right: aux.Right, Pairs: aux.Pairs}
	default:
		return fmt.Errorf("unknown card type %q", aux.Type)
	}
	return nil
}

func emptyIfNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
