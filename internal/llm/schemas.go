package llm

import (
	"github.com/google/generative-ai-go/genai"

	"cardlab-backend/internal/models"
)

// Response schemas passed to Gemini as structured-output hints. They bias
// the oracle toward the right shape but are never trusted; the structure
// normalizer and validator re-check everything.

var extractSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"entities": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"facts": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":      {Type: genai.TypeString},
					"statement": {Type: genai.TypeString},
				},
				Required: []string{"type", "statement"},
			},
		},
		"timeline": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"year":  {Type: genai.TypeInteger},
					"label": {Type: genai.TypeString},
				},
				Required: []string{"year", "label"},
			},
		},
		"triples": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"subject":   {Type: genai.TypeString},
					"predicate": {Type: genai.TypeString},
					"object":    {Type: genai.TypeString},
				},
				Required: []string{"subject", "predicate", "object"},
			},
		},
	},
	Required: []string{"entities", "facts"},
}

func cardsEnvelope(card *genai.Schema) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"cards": {Type: genai.TypeArray, Items: card},
		},
		Required: []string{"cards"},
	}
}

func typeField(name models.CardType) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: []string{string(name)}}
}

var mcqSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type":     typeField(models.CardMCQ),
		"question": {Type: genai.TypeString},
		"options": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"answer_index": {Type: genai.TypeInteger},
		"explain":      {Type: genai.TypeString},
	},
	Required: []string{"type", "question", "options", "answer_index"},
})

var shortSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type":   typeField(models.CardShort),
		"prompt": {Type: genai.TypeString},
		"answer": {Type: genai.TypeString},
		"rubric": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"aliases": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
			},
		},
	},
	Required: []string{"type", "prompt", "answer"},
})

var oxSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type":      typeField(models.CardOX),
		"statement": {Type: genai.TypeString},
		"answer":    {Type: genai.TypeBoolean},
		"explain":   {Type: genai.TypeString},
	},
	Required: []string{"type", "statement", "answer"},
})

var clozeSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": typeField(models.CardCloze),
		"text": {Type: genai.TypeString},
		"clozes": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"c1": {Type: genai.TypeString},
				"c2": {Type: genai.TypeString},
			},
		},
		"explain": {Type: genai.TypeString},
	},
	Required: []string{"type", "text", "clozes"},
})

var orderSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": typeField(models.CardOrder),
		"items": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"answer_order": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeInteger},
		},
		"explain": {Type: genai.TypeString},
	},
	Required: []string{"type", "items", "answer_order"},
})

var matchSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": typeField(models.CardMatch),
		"left": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"right": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"pairs": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeInteger},
			},
		},
		"explain": {Type: genai.TypeString},
	},
	Required: []string{"type", "left", "right", "pairs"},
})

// genericCardsSchema is the loose envelope used by the fix stage, where the
// input may mix card types.
var genericCardsSchema = cardsEnvelope(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type":    {Type: genai.TypeString},
		"explain": {Type: genai.TypeString},
	},
	Required: []string{"type"},
})

var typeSchemas = map[models.CardType]*genai.Schema{
	models.CardMCQ:   mcqSchema,
	models.CardShort: shortSchema,
	models.CardOX:    oxSchema,
	models.CardCloze: clozeSchema,
	models.CardOrder: orderSchema,
	models.CardMatch: matchSchema,
}

func schemaForType(t models.CardType) *genai.Schema {
	if s, ok := typeSchemas[t]; ok {
		return s
	}
	return genericCardsSchema
}
