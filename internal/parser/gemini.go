package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"meudinheiro/internal/core"
	"meudinheiro/internal/log"
)

const DefaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Service over the Gemini API.
type Gemini struct {
	gen    generator
	model  string
	logger *log.Logger
}

// NewGemini creates a client for apiKey. An empty key yields
// ErrNotConfigured.
func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, model, logger), nil
}

func newGemini(gen generator, model string, logger *log.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Gemini{gen: gen, model: model, logger: logger.WithComponent(log.ComponentParser)}
}

var transactionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"description":   {Type: genai.TypeString, Description: "The short description of the expense or income."},
		"amount":        {Type: genai.TypeNumber, Description: "The monetary value."},
		"category":      {Type: genai.TypeString, Description: "A category like Casa, Alimentação, Lazer, Transporte, etc."},
		"type":          {Type: genai.TypeString, Enum: []string{string(core.Fixed), string(core.Variable), string(core.Income)}, Description: "Whether it is a fixed expense, variable expense, or income."},
		"paymentMethod": {Type: genai.TypeString, Description: "Method like Pix, Cartão de Crédito, Boleto, etc."},
	},
	Required: []string{"description", "amount", "category", "type"},
}

type parsedWire struct {
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Type          string          `json:"type"`
	PaymentMethod string          `json:"paymentMethod"`
}

func (g *Gemini) Parse(ctx context.Context, text string) (Parsed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Parsed{}, ErrEmptyInput
	}

	prompt := fmt.Sprintf("Extract transaction details from this text: %q. If information is missing, infer reasonable defaults based on context.", text)
	resp, err := g.gen.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   transactionSchema,
	})
	if err != nil {
		return Parsed{}, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return Parsed{}, fmt.Errorf("%w: empty response", ErrBadResponse)
	}

	var w parsedWire
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &w); err != nil {
		return Parsed{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return w.toParsed()
}

func (w parsedWire) toParsed() (Parsed, error) {
	t, err := core.ParseType(w.Type)
	if err != nil {
		return Parsed{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	// models sometimes sign expenses negative
	amount := w.Amount.Abs()
	if amount.IsZero() {
		return Parsed{}, fmt.Errorf("%w: zero amount", ErrBadResponse)
	}
	desc := strings.TrimSpace(w.Description)
	if desc == "" {
		return Parsed{}, fmt.Errorf("%w: empty description", ErrBadResponse)
	}
	return Parsed{
		Description:   desc,
		Amount:        amount,
		Category:      strings.TrimSpace(w.Category),
		Type:          t,
		PaymentMethod: strings.TrimSpace(w.PaymentMethod),
	}, nil
}

type adviceItem struct {
	D string          `json:"d"`
	A decimal.Decimal `json:"a"`
	C string          `json:"c"`
	T string          `json:"t"`
}

// Advise asks for a Markdown summary in Portuguese of the month.
func (g *Gemini) Advise(ctx context.Context, monthName string, txs []core.Transaction) (string, error) {
	items := make([]adviceItem, 0, len(txs))
	for _, t := range txs {
		items = append(items, adviceItem{D: t.Description, A: t.Amount, C: t.Category, T: string(t.Type)})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}

	prompt := "Analyze the following financial data for the month of " + monthName + ".\n" +
		"Provide a concise summary in Portuguese (Markdown format).\n" +
		"Highlight:\n" +
		"1. Top spending category.\n" +
		"2. Suggestion for saving.\n" +
		"3. A brief motivational comment.\n\n" +
		"Data: " + string(data)

	resp, err := g.gen.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text, nil
	}
	return AdviceUnavailable, nil
}

// cleanModelJSON strips Markdown fences and text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
