package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"meudinheiro/internal/core"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields as sanitized strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of the body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object, otherwise
// as form values. An empty body parses to no fields.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", core.ErrValidation)
	}
	return p.err
}

// Get returns a trimmed, sanitized field value or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// parseTransactionInput maps the transaction form to a TransactionInput.
// Amount accepts "12.34", "12,34" or a JSON number. Only format errors are
// reported here; field rules are checked by TransactionInput.Validate.
func parseTransactionInput(p *RequestBodyParser) (core.TransactionInput, error) {
	in := core.TransactionInput{
		Description:   p.Get("description"),
		Category:      p.Get("category"),
		PaymentMethod: p.Get("paymentMethod"),
		Date:          p.Get("date"),
		Status:        core.Status(strings.ToUpper(p.Get("status"))),
	}
	if raw := p.Get("amount"); raw != "" {
		amount, err := core.ParseAmount(raw)
		if err != nil {
			return core.TransactionInput{}, err
		}
		in.Amount = &amount
	}
	if raw := p.Get("type"); raw != "" {
		t, err := core.ParseType(raw)
		if err != nil {
			return core.TransactionInput{}, fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		in.Type = t
	}
	return in, nil
}

// parseBool accepts the usual spellings of a checkbox or JSON boolean.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", core.ErrValidation, s)
}

// parseInt parses a required integer field.
func parseInt(p *RequestBodyParser, key string) (int, error) {
	raw := p.Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", core.ErrValidation, key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrValidation, key)
	}
	return n, nil
}
