package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/services"
	"github.com/crasadev/crasabot/utils"
)

// Messenger is the outbound message surface the orchestrator needs.
// Satisfied by services.MetaService and by test fakes.
type Messenger interface {
	SendText(to, text string) error
	SendButtons(to, body string, buttons []services.Button) error
}

// TicketRenderer produces the order ticket after confirmation.
type TicketRenderer interface {
	RenderTicket(sale *models.Sale, lines []services.CartLine, user *models.User) (string, error)
}

// Orchestrator drives one conversation turn per inbound message: dedup,
// blocked-user gating, classification, command handling, and the free-form
// extraction loop. Turns for the same user are serialized with a per-user
// lock so concurrent webhook deliveries cannot race on the open cart.
type Orchestrator struct {
	users      *services.UserService
	chats      *services.ChatService
	catalog    *services.CatalogService
	carts      *services.CartService
	tickets    TicketRenderer
	messenger  Messenger
	extractor  *Extractor
	classifier *Classifier
	sessions   *SessionStore
	dedup      *DedupCache

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewOrchestrator(
	users *services.UserService,
	chats *services.ChatService,
	catalog *services.CatalogService,
	carts *services.CartService,
	tickets TicketRenderer,
	messenger Messenger,
	extractor *Extractor,
) *Orchestrator {
	return &Orchestrator{
		users:      users,
		chats:      chats,
		catalog:    catalog,
		carts:      carts,
		tickets:    tickets,
		messenger:  messenger,
		extractor:  extractor,
		classifier: NewClassifier(),
		sessions:   NewSessionStore(),
		dedup:      NewDedupCache(100),
		locks:      make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) userLock(phone string) *sync.Mutex {
	o.lockMu.Lock()
	defer o.lockMu.Unlock()
	lock, ok := o.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[phone] = lock
	}
	return lock
}

// HandleMessage processes one inbound message end to end. from is the
// sender's phone number, name the profile name the transport reported, raw
// the original webhook payload for auditing.
func (o *Orchestrator) HandleMessage(ctx context.Context, from, name, text string, raw []byte) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if o.dedup.Seen(from, text, time.Now()) {
		utils.InfoLogger.Printf("Dropping duplicate message from %s", from)
		return nil
	}

	lock := o.userLock(from)
	lock.Lock()
	defer lock.Unlock()

	user, err := o.users.FindOrCreateByPhone(from, name)
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", from, err)
	}
	if o.users.IsBlocked(user) {
		utils.InfoLogger.Printf("Dropping message from blocked user %s", from)
		return nil
	}

	if err := o.chats.Record(user.ID, models.DirectionIncoming, text, raw); err != nil {
		utils.ErrorLogger.Printf("Failed to record incoming message: %v", err)
	}

	prev, err := o.chats.LastOutgoing(user.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load previous bot message: %v", err)
	}

	intent, cmd := o.classifier.Classify(text, prev)
	switch intent {
	case IntentCommand:
		return o.handleCommand(user, cmd)
	case IntentOrderComplete:
		return o.sendCartSummary(user, "Here is your order so far.")
	case IntentConfirmation:
		return o.sendCartSummary(user, "Great! Here is your order.")
	default:
		if !o.sessions.AssistantActive(user.Phone) {
			return o.sendHome(user)
		}
		return o.handleFreeForm(ctx, user, text)
	}
}

// reply sends a plain text message and records it as an outgoing turn.
func (o *Orchestrator) reply(user *models.User, text string) error {
	if err := o.messenger.SendText(user.Phone, text); err != nil {
		utils.ErrorLogger.Printf("Failed to send message to %s: %v", user.Phone, err)
		return err
	}
	if err := o.chats.Record(user.ID, models.DirectionOutgoing, text, nil); err != nil {
		utils.ErrorLogger.Printf("Failed to record outgoing message: %v", err)
	}
	return nil
}

// replyButtons sends an interactive message and records its body text.
func (o *Orchestrator) replyButtons(user *models.User, body string, buttons []services.Button) error {
	if err := o.messenger.SendButtons(user.Phone, body, buttons); err != nil {
		utils.ErrorLogger.Printf("Failed to send buttons to %s: %v", user.Phone, err)
		return err
	}
	if err := o.chats.Record(user.ID, models.DirectionOutgoing, body, nil); err != nil {
		utils.ErrorLogger.Printf("Failed to record outgoing message: %v", err)
	}
	return nil
}

func cartActionButtons() []services.Button {
	return []services.Button{
		{ID: "confirm", Title: "✅ Confirm"},
		{ID: "view_cart", Title: "🛒 View cart"},
		{ID: "add_more", Title: "➕ Add more"},
	}
}

func homeButtons() []services.Button {
	return []services.Button{
		{ID: "order", Title: "🛍 Place order"},
		{ID: "menu", Title: "📋 Menu"},
		{ID: "help", Title: "❓ Help"},
	}
}

func recoveryButtons() []services.Button {
	return []services.Button{
		{ID: "retry", Title: "🔄 Try again"},
		{ID: "view_cart", Title: "🛒 View cart"},
		{ID: "exit", Title: "🚪 Exit"},
	}
}

func (o *Orchestrator) handleCommand(user *models.User, cmd Command) error {
	switch cmd {
	case CmdGreeting, CmdHome:
		o.sessions.SetAssistant(user.Phone, false)
		return o.sendHome(user)
	case CmdOrder:
		o.sessions.SetAssistant(user.Phone, true)
		return o.reply(user, "Great! What would you like to order? You can just tell me in your own words.")
	case CmdAddMore:
		o.sessions.SetAssistant(user.Phone, true)
		return o.reply(user, "Sure! What else would you like to add?")
	case CmdMenu:
		o.sessions.SetAssistant(user.Phone, true)
		return o.sendMenu(user)
	case CmdHelp:
		return o.reply(user, "I can take your order right here in the chat. "+
			"Tell me what you would like, say \"that's all\" when you are done, and confirm your cart. "+
			"Send \"menu\" to see what we offer or \"support\" to reach a human.")
	case CmdSupport:
		return o.reply(user, "You can reach our team at support@crasadev.com and we will get back to you as soon as possible.")
	case CmdViewCart:
		return o.sendCartSummary(user, "Here is your cart.")
	case CmdConfirm:
		return o.confirmOrder(user)
	case CmdExit:
		return o.exitConversation(user)
	case CmdRetry:
		o.sessions.SetAssistant(user.Phone, true)
		return o.reply(user, "No problem. Tell me your order again and I'll take it from the top.")
	default:
		return o.sendHome(user)
	}
}

func (o *Orchestrator) sendHome(user *models.User) error {
	name := user.Name
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s! 👋 Welcome to our shop. What would you like to do?", name)
	return o.replyButtons(user, body, homeButtons())
}

func (o *Orchestrator) sendMenu(user *models.User) error {
	products, err := o.catalog.Products()
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load catalog: %v", err)
		return o.reply(user, "Sorry, no products are available right now. Please try again later.")
	}
	if len(products) == 0 {
		return o.reply(user, "Sorry, no products are available right now. Please try again later.")
	}

	var b strings.Builder
	b.WriteString("📋 Our menu:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "\n• %s — package of %d for %s", p.Name, p.PackageSize, utils.FormatCents(p.PackagePriceCents))
		if len(p.Flavors) > 0 {
			names := make([]string, 0, len(p.Flavors))
			for _, f := range p.Flavors {
				names = append(names, f.Name)
			}
			fmt.Fprintf(&b, "\n  Flavors: %s", strings.Join(names, ", "))
		}
	}
	b.WriteString("\n\nJust tell me what you'd like!")
	return o.reply(user, b.String())
}

func summaryText(header string, lines []services.CartLine, total int64) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n🛒 Your cart:\n")
	for _, line := range lines {
		name := line.ProductName
		if line.FlavorName != "" {
			name += " " + line.FlavorName
		}
		fmt.Fprintf(&b, "• %dx %s = %s\n", line.Quantity, name, utils.FormatCents(line.SubtotalCents))
	}
	fmt.Fprintf(&b, "\nTotal: %s", utils.FormatCents(total))
	return b.String()
}

// sendCartSummary shows the open cart with confirm/view/add actions, or a
// prompt to start ordering when there is nothing in it. It never creates a
// cart.
func (o *Orchestrator) sendCartSummary(user *models.User, header string) error {
	cart, err := o.carts.FindOpenCart(user.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to look up open cart: %v", err)
		return o.replyButtons(user, "Something went wrong loading your cart. Please try again.", recoveryButtons())
	}
	if cart == nil {
		return o.reply(user, "Your cart is empty. What would you like to order?")
	}
	lines, err := o.carts.Lines(cart.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load cart lines: %v", err)
		return o.replyButtons(user, "Something went wrong loading your cart. Please try again.", recoveryButtons())
	}
	if len(lines) == 0 {
		return o.reply(user, "Your cart is empty. What would you like to order?")
	}
	body := summaryText(header, lines, cart.TotalCents) + "\n\nReady to confirm?"
	return o.replyButtons(user, body, cartActionButtons())
}

// confirmOrder moves the open cart to confirmed, attempts the ticket render
// and shows the final summary. A confirm with no open cart, including a
// repeated confirm, prompts to start a new order.
func (o *Orchestrator) confirmOrder(user *models.User) error {
	cart, err := o.carts.FindOpenCart(user.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to look up open cart: %v", err)
		return o.replyButtons(user, "Something went wrong confirming your order. Please try again.", recoveryButtons())
	}
	if cart == nil {
		return o.reply(user, "You have no open order. Send \"order\" to start a new one!")
	}
	lines, err := o.carts.Lines(cart.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load cart lines: %v", err)
		return o.replyButtons(user, "Something went wrong confirming your order. Please try again.", recoveryButtons())
	}
	if len(lines) == 0 {
		return o.reply(user, "Your cart is empty, there is nothing to confirm yet. What would you like to order?")
	}

	if err := o.carts.Confirm(cart); err != nil {
		utils.ErrorLogger.Printf("Failed to confirm cart %d: %v", cart.ID, err)
		return o.replyButtons(user, "Something went wrong confirming your order. Please try again.", recoveryButtons())
	}
	o.sessions.SetAssistant(user.Phone, false)

	// Ticket rendering must never fail the confirmation.
	if o.tickets != nil {
		if path, err := o.tickets.RenderTicket(cart, lines, user); err != nil {
			utils.ErrorLogger.Printf("Ticket render failed for sale %d: %v", cart.ID, err)
		} else if err := o.carts.SetTicketPath(cart, path); err != nil {
			utils.ErrorLogger.Printf("Failed to store ticket path for sale %d: %v", cart.ID, err)
		}
	}

	body := summaryText("✅ Order confirmed! Thank you.", lines, cart.TotalCents) +
		"\n\nWe'll let you know when it's on the way."
	return o.reply(user, body)
}

// exitConversation cancels any open cart and leaves assistant mode.
func (o *Orchestrator) exitConversation(user *models.User) error {
	cart, err := o.carts.FindOpenCart(user.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to look up open cart: %v", err)
	}
	if cart != nil {
		if err := o.carts.Cancel(cart); err != nil {
			utils.ErrorLogger.Printf("Failed to cancel cart %d: %v", cart.ID, err)
		}
	}
	o.sessions.SetAssistant(user.Phone, false)
	return o.reply(user, "No problem, your order has been cancelled. Come back any time! 👋")
}

// handleFreeForm runs the extraction loop: ground the prompt, call the
// model, apply whatever operations come back and show the result.
func (o *Orchestrator) handleFreeForm(ctx context.Context, user *models.User, text string) error {
	products, err := o.catalog.Products()
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load catalog: %v", err)
		return o.reply(user, "Sorry, no products are available right now. Please try again later.")
	}
	if len(products) == 0 {
		return o.reply(user, "Sorry, no products are available right now. Please try again later.")
	}

	var cartLines []services.CartLine
	cart, err := o.carts.FindOpenCart(user.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to look up open cart: %v", err)
	} else if cart != nil {
		if cartLines, err = o.carts.Lines(cart.ID); err != nil {
			utils.ErrorLogger.Printf("Failed to load cart lines: %v", err)
			cartLines = nil
		}
	}

	history, err := o.chats.RecentHistory(user.ID, historyWindow)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load chat history: %v", err)
	}
	// The incoming message was already recorded; drop it from the history
	// so the prompt does not repeat it.
	if n := len(history); n > 0 && history[n-1].Direction == models.DirectionIncoming && history[n-1].Message == text {
		history = history[:n-1]
	}

	extraction, err := o.extractor.Extract(ctx, BuildMessages(products, cartLines, history, text))
	if err != nil {
		utils.ErrorLogger.Printf("Extraction failed for %s: %v", user.Phone, err)
		return o.replyButtons(user, "Sorry, I couldn't come up with a response. Could you say that again?", recoveryButtons())
	}

	if extraction.NeedsClarification || len(extraction.Ops) == 0 {
		if extraction.Reply == "" {
			return o.replyButtons(user, "Sorry, I couldn't come up with a response. Could you say that again?", recoveryButtons())
		}
		return o.reply(user, extraction.Reply)
	}

	ops := make([]services.CartOp, 0, len(extraction.Ops))
	for _, op := range extraction.Ops {
		if _, err := o.catalog.ProductByID(op.ProductID); err != nil {
			utils.ErrorLogger.Printf("Dropping operation for unknown product %d from %s", op.ProductID, user.Phone)
			continue
		}
		ops = append(ops, services.CartOp{
			ProductID:     op.ProductID,
			FlavorID:      op.FlavorID,
			Quantity:      op.Quantity,
			SubtotalCents: op.SubtotalCents,
			Remove:        op.IsRemove(),
		})
	}
	if len(ops) == 0 {
		return o.replyButtons(user, "Sorry, I couldn't match that to our menu. Could you say it again?", recoveryButtons())
	}

	cart, err = o.carts.OpenCart(user.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to open cart for %s: %v", user.Phone, err)
		return o.replyButtons(user, "Something went wrong saving your order. Please try again.", recoveryButtons())
	}
	if err := o.carts.ApplyOps(cart, ops); err != nil {
		utils.ErrorLogger.Printf("Cart reconciliation failed for %s: %v", user.Phone, err)
		return o.replyButtons(user, "Something went wrong updating your cart. Please try again.", recoveryButtons())
	}

	lines, err := o.carts.Lines(cart.ID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load cart lines: %v", err)
		return o.reply(user, extraction.Reply)
	}

	body := extraction.Reply
	if body != "" {
		body += "\n\n"
	}
	body += summaryText("Here is your cart so far.", lines, cart.TotalCents)
	return o.replyButtons(user, body, cartActionButtons())
}
