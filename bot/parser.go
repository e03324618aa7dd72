package bot

import (
	"encoding/json"
	"regexp"
	"strings"
)

// OrderOp is one proposed cart mutation decoded from a model reply. Kind is
// "add" when empty.
type OrderOp struct {
	ProductID     uint   `json:"product_id"`
	FlavorID      *uint  `json:"flavor_id,omitempty"`
	Quantity      int    `json:"quantity"`
	SubtotalCents int64  `json:"subtotal_cents"`
	Kind          string `json:"kind,omitempty"`
}

const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// IsRemove reports whether the op deletes its line instead of adding to it.
func (o OrderOp) IsRemove() bool {
	return o.Kind == OpRemove
}

// ParseResult is the outcome of scanning a raw model reply.
type ParseResult struct {
	Items              []OrderOp
	NeedsClarification bool
}

// orderBlockMarker locates the start of a structured block the model emits
// inline, without fencing. orderBlockPattern matches a whole block; the
// non-greedy body stops at the first closing bracket pair so trailing prose
// is never swallowed.
var (
	orderBlockMarker  = regexp.MustCompile(`\{\s*"items"\s*:`)
	orderBlockPattern = regexp.MustCompile(`(?s)\{\s*"items"\s*:\s*\[.*?\]\s*\}`)
)

// clarificationFragments mark a reply as a clarifying question. Checked
// before any JSON scan because a question may contain stray braces.
var clarificationFragments = []string{
	"which flavor",
	"what flavor",
	"which flavors",
	"what flavors",
	"how many of each",
	"how would you like to split",
	"could you tell me",
	"could you specify",
	"can you specify",
	"please specify",
	"to clarify",
	"just to confirm, did you mean",
}

type orderBlock struct {
	Items []OrderOp `json:"items"`
}

// ParseOrderReply extracts order operations from raw model text. A
// clarifying question short-circuits with no items; a missing or malformed
// block degrades to an empty op list, never an error.
func ParseOrderReply(raw string) ParseResult {
	lower := strings.ToLower(raw)
	for _, fragment := range clarificationFragments {
		if strings.Contains(lower, fragment) {
			return ParseResult{NeedsClarification: true}
		}
	}

	// The model is told to emit one block but sometimes emits several.
	// Decode every block found, skip the malformed ones, and keep the
	// items in encounter order.
	var result ParseResult
	for _, match := range orderBlockPattern.FindAllString(raw, -1) {
		var block orderBlock
		if err := json.Unmarshal([]byte(match), &block); err != nil {
			continue
		}
		result.Items = append(result.Items, block.Items...)
	}
	return result
}

// SplitReply returns the prose portion of a model reply, up to the
// structured block if one is present. This is what the user actually sees.
func SplitReply(raw string) string {
	loc := orderBlockMarker.FindStringIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw[:loc[0]])
}
