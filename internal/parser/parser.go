// Package parser turns free text into transactions and produces monthly
// advice using a generative language model.
package parser

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"meudinheiro/internal/core"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrNotConfigured = errors.New("text parser not configured")
	ErrBadResponse   = errors.New("unusable model response")
)

// Messages shown in place of advice.
const (
	AdviceNotConfigured = "Configure sua API Key para receber insights inteligentes."
	AdviceUnavailable   = "Não foi possível gerar análise no momento."
	AdviceFailed        = "Erro ao conectar com a IA."
)

// Parsed is a transaction extracted from text. PaymentMethod may be empty.
type Parsed struct {
	Description   string               `json:"description"`
	Amount        decimal.Decimal      `json:"amount"`
	Category      string               `json:"category"`
	Type          core.TransactionType `json:"type"`
	PaymentMethod string               `json:"paymentMethod,omitempty"`
}

type TextParser interface {
	Parse(ctx context.Context, text string) (Parsed, error)
}

// Advisor writes a short analysis of a month's transactions.
type Advisor interface {
	Advise(ctx context.Context, monthName string, txs []core.Transaction) (string, error)
}

// Service is what the application controller needs from the model.
type Service interface {
	TextParser
	Advisor
}
