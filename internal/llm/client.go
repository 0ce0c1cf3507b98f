package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"cardlab-backend/internal/models"
)

// Per-type output caps and temperatures for single-card generation. Caps are
// tight on purpose; truncated JSON is handled by RecoverJSONObject.
var typeMaxOut = map[models.CardType]int32{
	models.CardMCQ:   260,
	models.CardShort: 180,
	models.CardOX:    160,
	models.CardCloze: 220,
	models.CardOrder: 220,
	models.CardMatch: 240,
}

var typeTemp = map[models.CardType]float32{
	models.CardMCQ:   0.35,
	models.CardShort: 0.2,
	models.CardOX:    0.2,
	models.CardCloze: 0.3,
	models.CardOrder: 0.3,
	models.CardMatch: 0.35,
}

// Config carries the per-stage oracle tuning knobs.
type Config struct {
	ExtractModel  string
	GenerateModel string
	FixModel      string

	MaxOutExtract  int
	MaxOutGenerate int
	MaxOutFix      int
	TempExtract    float64
	TempGenerate   float64
	TempFix        float64

	RequestTimeoutSec int
	ConcurrentReqs    int
}

// Result is what every oracle call returns: a decoded payload (possibly
// empty when the output was unrecoverable) plus accounting.
type Result struct {
	Data      map[string]interface{}
	TokensIn  int
	TokensOut int
	LatencyMs int64
}

type Client struct {
	client   *genai.Client
	cfg      Config
	rateChan chan struct{} // Token bucket
}

func NewClient(ctx context.Context, apiKey string, cfg Config) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.ConcurrentReqs <= 0 {
		cfg.ConcurrentReqs = 5
	}
	rateChan := make(chan struct{}, cfg.ConcurrentReqs)
	for i := 0; i < cfg.ConcurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &Client{client: client, cfg: cfg, rateChan: rateChan}, nil
}

func (c *Client) Close() {
	c.client.Close()
}

// acquireRate blocks until a rate slot is available
func (c *Client) acquireRate(ctx context.Context) error {
	select {
	case <-c.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (c *Client) releaseRate() {
	c.rateChan <- struct{}{}
}

// ExtractFacts asks the oracle to turn raw content into the extraction
// payload (entities, facts, timeline, triples).
func (c *Client) ExtractFacts(ctx context.Context, content string, highlights []string) (Result, error) {
	return c.call(ctx, c.cfg.ExtractModel,
		systemExtraction, userExtraction(content, highlights),
		float32(c.cfg.TempExtract), int32(c.cfg.MaxOutExtract), extractSchema)
}

// GenerateOne asks for exactly one card of the given type using the
// type-specific budget, temperature and response schema.
func (c *Client) GenerateOne(ctx context.Context, facts models.FactSet, cardType models.CardType, difficulty string) (Result, error) {
	maxOut, ok := typeMaxOut[cardType]
	if !ok {
		maxOut = int32(c.cfg.MaxOutGenerate)
	}
	temp, ok := typeTemp[cardType]
	if !ok {
		temp = float32(c.cfg.TempGenerate)
	}
	return c.call(ctx, c.cfg.GenerateModel,
		systemGenerationMin, userGenerationOne(facts, cardType, difficulty),
		temp, maxOut, schemaForType(cardType))
}

// GenerateBatch is the legacy generation path used as a fallback when the
// single-card call produced nothing usable. No response schema: some model
// revisions reject the structured-output config, and this path must still
// work against them.
func (c *Client) GenerateBatch(ctx context.Context, facts models.FactSet, types []models.CardType, difficulty string) (Result, error) {
	return c.call(ctx, c.cfg.GenerateModel,
		systemGeneration, userGenerationBatch(facts, types, difficulty),
		float32(c.cfg.TempGenerate), int32(c.cfg.MaxOutGenerate), nil)
}

// FixCards sends invalid cards plus the validator findings back to the
// oracle for a minimal repair. Only the first few errors are forwarded.
func (c *Client) FixCards(ctx context.Context, cards []models.Card, errs []models.ValidationError) (Result, error) {
	if len(errs) > 6 {
		errs = errs[:6]
	}
	return c.call(ctx, c.cfg.FixModel,
		systemFix, userFix(cards, errs),
		float32(c.cfg.TempFix), int32(c.cfg.MaxOutFix), genericCardsSchema)
}

// call runs one oracle request. A transport or API failure returns an error;
// output that is present but undecodable returns an empty Data map with no
// error, so the caller's validation stage rejects it like any other bad
// payload.
func (c *Client) call(ctx context.Context, modelName, system, user string, temp float32, maxTokens int32, schema *genai.Schema) (Result, error) {
	if err := c.acquireRate(ctx); err != nil {
		return Result{}, err
	}
	defer c.releaseRate()

	timeout := time.Duration(c.cfg.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(temp)
	// Requested caps are sized for the payload alone; give the model slack
	// so a verbose answer truncates in the junk tail, not mid-object.
	model.SetMaxOutputTokens(maxTokens * 2)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = schema
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(user))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{}, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	result := Result{LatencyMs: latency}
	if resp.UsageMetadata != nil {
		result.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		result.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	result.Data = RecoverJSONObject(extractText(resp))
	return result, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
