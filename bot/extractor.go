package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Completer is the completion API surface the extractor depends on.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Extractor runs a single grounded completion per free-form turn and parses
// the reply into prose plus order operations.
type Extractor struct {
	completer Completer
	timeout   time.Duration
}

func NewExtractor(completer Completer, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{completer: completer, timeout: timeout}
}

// Extraction is one extractor turn: the prose to show the user plus the
// parsed order operations, if any.
type Extraction struct {
	Reply              string
	Ops                []OrderOp
	NeedsClarification bool
}

// Extract calls the model with a bounded timeout and parses whatever comes
// back. The raw reply is untrusted; empty or malformed output yields an
// error the orchestrator turns into a fallback message.
func (e *Extractor) Extract(ctx context.Context, messages []Message) (Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.completer.Complete(ctx, messages)
	if err != nil {
		return Extraction{}, fmt.Errorf("completion failed: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Extraction{}, fmt.Errorf("completion returned empty text")
	}

	parsed := ParseOrderReply(raw)
	return Extraction{
		Reply:              SplitReply(raw),
		Ops:                parsed.Items,
		NeedsClarification: parsed.NeedsClarification,
	}, nil
}
