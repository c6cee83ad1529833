// Package extract parses transaction-notification message bodies into raw
// expense records using anchored field patterns.
package extract

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/finwatch/expense-importer/internal/core"
	"github.com/finwatch/expense-importer/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Extractor turns a RawMessage into an ExtractedExpense. A message that lacks
// a merchant or a positive numeric amount is not an expense email and yields
// an error, never a panic.
type Extractor struct {
	logger          *zap.Logger
	text            *utils.TextProcessor
	defaultCurrency string
	now             func() time.Time
}

// NewExtractor creates an extractor. defaultCurrency is used when the body
// carries no recognizable 3-letter currency code.
func NewExtractor(defaultCurrency string, text *utils.TextProcessor, logger *zap.Logger) *Extractor {
	return &Extractor{
		logger:          logger,
		text:            text,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
	}
}

// Extract parses the message body into an expense record.
func (x *Extractor) Extract(msg *core.RawMessage) (*core.ExtractedExpense, error) {
	body, err := x.bodyText(msg)
	if err != nil {
		return nil, fmt.Errorf("decode message body: %w", err)
	}

	merchant := matchMerchant(body)
	if merchant == "" {
		return nil, errors.New("no merchant field in message body")
	}

	amountStr, currency := matchAmount(body)
	if amountStr == "" {
		return nil, errors.New("no amount field in message body")
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(amountStr, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("unparseable amount %q: %w", amountStr, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount %s is not positive", amount)
	}

	if currency == "" {
		currency = x.defaultCurrency
	}

	expense := &core.ExtractedExpense{
		Merchant:   merchant,
		Amount:     amount,
		Currency:   currency,
		OccurredAt: x.resolveDate(body, msg),
		Location:   matchLocation(body),
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	x.logger.Debug("Extracted expense",
		zap.String("message_id", msg.ID),
		zap.String("merchant", expense.Merchant),
		zap.String("amount", expense.Amount.String()),
		zap.String("currency", expense.Currency))
	return expense, nil
}

// resolveDate tries the body text first, then the transport Date header,
// then the current processing time.
func (x *Extractor) resolveDate(body string, msg *core.RawMessage) time.Time {
	if t, ok := matchDate(body); ok {
		return t
	}
	if hdr := msg.Header("Date"); hdr != "" {
		if t, err := mail.ParseDate(hdr); err == nil {
			return t
		}
	}
	return x.now()
}

// bodyText selects the HTML part if present, else plain text, decodes the
// transport encoding, and reduces HTML to plain text.
func (x *Extractor) bodyText(msg *core.RawMessage) (string, error) {
	part := selectPart(&msg.Payload)
	if part == nil || part.Data == "" {
		return "", errors.New("message has no text body part")
	}
	raw, err := decodeBase64URL(part.Data)
	if err != nil {
		return "", err
	}
	text := decodeCharset(raw)
	if strings.HasPrefix(strings.ToLower(part.MimeType), "text/html") {
		text = htmlToText(text)
	}
	return x.text.SanitizeUTF8(text), nil
}

// selectPart walks the part tree preferring text/html over text/plain.
func selectPart(root *core.MessagePart) *core.MessagePart {
	if p := findPart(root, "text/html"); p != nil {
		return p
	}
	if p := findPart(root, "text/plain"); p != nil {
		return p
	}
	if root.Data != "" {
		return root
	}
	return nil
}

func findPart(p *core.MessagePart, mimeType string) *core.MessagePart {
	if strings.HasPrefix(strings.ToLower(p.MimeType), mimeType) && p.Data != "" {
		return p
	}
	for i := range p.Parts {
		if found := findPart(&p.Parts[i], mimeType); found != nil {
			return found
		}
	}
	return nil
}
