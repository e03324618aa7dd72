package bot

import (
	"fmt"
	"strings"

	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/services"
	"github.com/crasadev/crasabot/utils"
)

// Message is one turn handed to the completion API.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// historyWindow bounds how many recent chat turns ride along in the prompt.
const historyWindow = 10

const systemPromptTemplate = `You are a friendly order-taking assistant for a snack shop on WhatsApp.

PRODUCT CATALOG:
%s

CURRENT CART:
%s

RULES:
- Only offer products from the catalog above. If asked about anything else, say it is not available.
- Prices are per package. A package of N pieces can be split across flavors; each flavor split is priced proportionally from the package price.
- NEVER assume a flavor the customer did not name. NEVER assume how to split quantities across flavors. If either is unclear, ask a clarifying question instead of emitting order data.
- When the customer clearly orders something, reply with a short friendly sentence followed by exactly one order block on a single line, with nothing after it:
  {"items": [{"product_id": 1, "flavor_id": 2, "quantity": 6, "subtotal_cents": 12000}]}
- flavor_id may be omitted for products without flavors. subtotal_cents is the total price in cents for that quantity, not the unit price.
- To correct a previous item, emit a remove followed by an add: {"items": [{"product_id": 1, "flavor_id": 2, "quantity": 6, "subtotal_cents": 12000, "kind": "remove"}, {"product_id": 1, "flavor_id": 3, "quantity": 6, "subtotal_cents": 12000}]}
- Keep replies short and conversational. Do not show raw ids or JSON to the customer in your prose.`

// BuildMessages assembles the completion request: a grounded system prompt,
// a bounded slice of recent history, then the incoming user text.
func BuildMessages(catalog []models.Product, cart []services.CartLine, history []models.ChatMessage, userText string) []Message {
	msgs := []Message{{
		Role:    RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, formatCatalog(catalog), formatCart(cart)),
	}}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, turn := range history[start:] {
		role := RoleUser
		if turn.Direction == models.DirectionOutgoing {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: turn.Message})
	}

	return append(msgs, Message{Role: RoleUser, Content: userText})
}

func formatCatalog(products []models.Product) string {
	if len(products) == 0 {
		return "(no products available)"
	}
	var b strings.Builder
	for _, p := range products {
		fmt.Fprintf(&b, "- id=%d %s: package of %d pieces, %s per package",
			p.ID, p.Name, p.PackageSize, utils.FormatCents(p.PackagePriceCents))
		if len(p.Flavors) > 0 {
			names := make([]string, 0, len(p.Flavors))
			for _, f := range p.Flavors {
				names = append(names, fmt.Sprintf("%s (id=%d)", f.Name, f.ID))
			}
			fmt.Fprintf(&b, ", flavors: %s", strings.Join(names, ", "))
			if len(p.Flavors) >= 2 {
				// Ground the split-pricing rule with concrete numbers so
				// the model does not invent its own rounding.
				shares := SplitPackagePrice(p.PackagePriceCents, 2)
				fmt.Fprintf(&b, " (split across 2 flavors: %s + %s)",
					utils.FormatCents(shares[0]), utils.FormatCents(shares[1]))
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCart(lines []services.CartLine) string {
	if len(lines) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	var total int64
	for _, line := range lines {
		name := line.ProductName
		if line.FlavorName != "" {
			name += " " + line.FlavorName
		}
		fmt.Fprintf(&b, "- %dx %s = %s\n", line.Quantity, name, utils.FormatCents(line.SubtotalCents))
		total += line.SubtotalCents
	}
	fmt.Fprintf(&b, "Total: %s", utils.FormatCents(total))
	return b.String()
}
