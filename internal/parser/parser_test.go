package parser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"meudinheiro/internal/core"
)

type fakeGenerator struct {
	reply  string
	err    error
	model  string
	config *genai.GenerateContentConfig
	prompt string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGeminiParse(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Parsed
		wantErr error
	}{
		{
			name:  "plain json",
			reply: `{"description":"Uber","amount":25.5,"category":"Transporte","type":"VARIABLE","paymentMethod":"Pix"}`,
			want:  Parsed{Description: "Uber", Amount: decimal.RequireFromString("25.5"), Category: "Transporte", Type: core.Variable, PaymentMethod: "Pix"},
		},
		{
			name:  "fenced json without payment method",
			reply: "```json\n{\"description\":\"Salário\",\"amount\":6500,\"category\":\"Trabalho\",\"type\":\"INCOME\"}\n```",
			want:  Parsed{Description: "Salário", Amount: decimal.NewFromInt(6500), Category: "Trabalho", Type: core.Income},
		},
		{
			name:  "negative amount is made positive",
			reply: `{"description":"Mercado","amount":-80,"category":"Alimentação","type":"variable"}`,
			want:  Parsed{Description: "Mercado", Amount: decimal.NewFromInt(80), Category: "Alimentação", Type: core.Variable},
		},
		{
			name:    "unknown type",
			reply:   `{"description":"x","amount":1,"category":"y","type":"LOAN"}`,
			wantErr: ErrBadResponse,
		},
		{
			name:    "zero amount",
			reply:   `{"description":"x","amount":0,"category":"y","type":"FIXED"}`,
			wantErr: ErrBadResponse,
		},
		{
			name:    "not json",
			reply:   "sorry, I cannot help",
			wantErr: ErrBadResponse,
		},
		{
			name:    "empty reply",
			reply:   "",
			wantErr: ErrBadResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: tt.reply}
			g := newGemini(gen, "", nil)

			got, err := g.Parse(context.Background(), "uber 25,50 pix")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.Description != tt.want.Description || !got.Amount.Equal(tt.want.Amount) ||
				got.Category != tt.want.Category || got.Type != tt.want.Type || got.PaymentMethod != tt.want.PaymentMethod {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
			if gen.model != DefaultModel {
				t.Errorf("model = %q, want %q", gen.model, DefaultModel)
			}
			if gen.config == nil || gen.config.ResponseMIMEType != "application/json" || gen.config.ResponseSchema == nil {
				t.Errorf("parse must request a JSON response with a schema, got %+v", gen.config)
			}
		})
	}
}

func TestGeminiParseEmptyInput(t *testing.T) {
	g := newGemini(&fakeGenerator{}, "", nil)
	if _, err := g.Parse(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestGeminiParseModelError(t *testing.T) {
	g := newGemini(&fakeGenerator{err: errors.New("quota")}, "", nil)
	if _, err := g.Parse(context.Background(), "café 5"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestNewGeminiWithoutKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGeminiAdvise(t *testing.T) {
	gen := &fakeGenerator{reply: "**Casa** foi a maior despesa."}
	g := newGemini(gen, "custom-model", nil)
	txs := []core.Transaction{{Description: "Aluguel", Amount: decimal.NewFromInt(2500), Category: "Casa", Type: core.Fixed}}

	got, err := g.Advise(context.Background(), "Janeiro", txs)
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if got != "**Casa** foi a maior despesa." {
		t.Errorf("Advise() = %q", got)
	}
	if gen.model != "custom-model" || gen.config != nil {
		t.Errorf("advice should use the plain model call, got model=%q config=%v", gen.model, gen.config)
	}
	if !strings.Contains(gen.prompt, "Janeiro") || !strings.Contains(gen.prompt, `"d":"Aluguel"`) {
		t.Errorf("prompt missing month or data: %s", gen.prompt)
	}
}

func TestGeminiAdviseEmptyReply(t *testing.T) {
	g := newGemini(&fakeGenerator{reply: "  "}, "", nil)
	got, err := g.Advise(context.Background(), "Março", nil)
	if err != nil || got != AdviceUnavailable {
		t.Fatalf("Advise() = %q, %v; want fallback", got, err)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{`Here you go: {"a":1} enjoy`, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := cleanModelJSON(tt.in); got != tt.want {
			t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type countingService struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *countingService) Parse(_ context.Context, text string) (Parsed, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return Parsed{}, s.err
	}
	return Parsed{Description: text, Amount: decimal.NewFromInt(1), Category: "Outros", Type: core.Variable}, nil
}

func (s *countingService) Advise(context.Context, string, []core.Transaction) (string, error) {
	return "ok", nil
}

func TestCachedParseReusesResults(t *testing.T) {
	svc := &countingService{}
	c := NewCached(svc, 10, time.Minute, nil)
	ctx := context.Background()

	if _, err := c.Parse(ctx, "Café  5"); err != nil {
		t.Fatalf("first parse: %v", err)
	}
	if _, err := c.Parse(ctx, "  Café 5 "); err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if n := svc.calls.Load(); n != 1 {
		t.Fatalf("normalized text should hit the cache, got %d calls", n)
	}
}

func TestCachedParseKeepsCase(t *testing.T) {
	svc := &countingService{}
	c := NewCached(svc, 10, time.Minute, nil)
	ctx := context.Background()

	upper, err := c.Parse(ctx, "Uber 25")
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	lower, err := c.Parse(ctx, "uber 25")
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if n := svc.calls.Load(); n != 2 {
		t.Fatalf("texts differing in case are parsed separately, got %d calls", n)
	}
	if upper.Description != "Uber 25" || lower.Description != "uber 25" {
		t.Errorf("descriptions = %q, %q; want each input's casing", upper.Description, lower.Description)
	}
}

func TestCachedParseDoesNotCacheErrors(t *testing.T) {
	svc := &countingService{err: errors.New("boom")}
	c := NewCached(svc, 10, time.Minute, nil)
	ctx := context.Background()

	_, _ = c.Parse(ctx, "x")
	_, _ = c.Parse(ctx, "x")
	if n := svc.calls.Load(); n != 2 {
		t.Fatalf("failures must not be cached, got %d calls", n)
	}
	if _, err := c.Parse(ctx, " "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestCachedParseDeduplicatesConcurrentCalls(t *testing.T) {
	svc := &countingService{release: make(chan struct{})}
	c := NewCached(svc, 10, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Parse(context.Background(), "mercado 80")
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(svc.release)
	wg.Wait()

	if n := svc.calls.Load(); n != 1 {
		t.Fatalf("expected a single model call, got %d", n)
	}
}
