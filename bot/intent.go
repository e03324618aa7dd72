package bot

import "strings"

// Intent is the coarse classification of an incoming message. It decides
// whether the orchestrator can answer directly or has to involve the model.
type Intent int

const (
	IntentFreeForm Intent = iota
	IntentCommand
	IntentOrderComplete
	IntentConfirmation
)

// Command identifies one of the fixed button or keyword actions.
type Command string

const (
	CmdConfirm  Command = "confirm"
	CmdViewCart Command = "view_cart"
	CmdAddMore  Command = "add_more"
	CmdMenu     Command = "menu"
	CmdHelp     Command = "help"
	CmdHome     Command = "home"
	CmdSupport  Command = "support"
	CmdExit     Command = "exit"
	CmdRetry    Command = "retry"
	CmdOrder    Command = "order"
	CmdGreeting Command = "greeting"
)

// maxConfirmationLen bounds the length of a reply that can count as a bare
// affirmative.
const maxConfirmationLen = 8

// Classifier routes incoming text by phrase tables rather than hard-coded
// branches, so the tables can be swapped or extended without touching the
// routing logic.
type Classifier struct {
	// Commands maps normalized whole-message text to an action. Matching
	// is exact so ordinary sentences that contain a keyword still reach
	// the extractor.
	Commands map[string]Command
	// EndingPhrases signal the customer is done adding items. Substring
	// match, so "no that's all thanks" still counts.
	EndingPhrases []string
	// ConfirmationTokens are the short replies that count as a yes when
	// the bot has just shown a cart summary.
	ConfirmationTokens map[string]bool
	// SummaryMarkers identify a previous outgoing message as a cart
	// summary or confirmation prompt. A bare "yes" only counts when the
	// bot just asked for one.
	SummaryMarkers []string
}

// NewClassifier returns a classifier loaded with the default phrase tables.
func NewClassifier() *Classifier {
	return &Classifier{
		Commands: map[string]Command{
			"✅ confirm":     CmdConfirm,
			"confirm":       CmdConfirm,
			"🛒 view cart":   CmdViewCart,
			"view cart":     CmdViewCart,
			"cart":          CmdViewCart,
			"➕ add more":    CmdAddMore,
			"add more":      CmdAddMore,
			"📋 menu":        CmdMenu,
			"menu":          CmdMenu,
			"❓ help":        CmdHelp,
			"help":          CmdHelp,
			"🏠 home":        CmdHome,
			"home":          CmdHome,
			"👨🏻‍💻 support":  CmdSupport,
			"support":       CmdSupport,
			"🚪 exit":        CmdExit,
			"exit":          CmdExit,
			"cancel":        CmdExit,
			"🔄 try again":   CmdRetry,
			"try again":     CmdRetry,
			"🛍 place order": CmdOrder,
			"place order":   CmdOrder,
			"order":         CmdOrder,
			"hi":            CmdGreeting,
			"hello":         CmdGreeting,
			"hey":           CmdGreeting,
			"good morning":  CmdGreeting,
			"good evening":  CmdGreeting,
		},
		EndingPhrases: []string{
			"that's all",
			"thats all",
			"that is all",
			"nothing else",
			"that would be all",
			"i'm done",
			"im done",
			"that's it",
			"thats it",
			"no more",
			"that's everything",
			"thats everything",
		},
		ConfirmationTokens: map[string]bool{
			"yes":     true,
			"si":      true,
			"sí":      true,
			"yeah":    true,
			"yep":     true,
			"yup":     true,
			"ok":      true,
			"okay":    true,
			"sure":    true,
			"correct": true,
			"right":   true,
			"👍":       true,
		},
		SummaryMarkers: []string{
			"cart",
			"total:",
			"confirm",
		},
	}
}

// Normalize lowercases and trims a message for classification.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// LookupCommand resolves a normalized message to a fixed command, if any.
func (c *Classifier) LookupCommand(text string) (Command, bool) {
	cmd, ok := c.Commands[Normalize(text)]
	return cmd, ok
}

// IsOrderComplete reports whether the message contains an ending phrase.
func (c *Classifier) IsOrderComplete(text string) bool {
	norm := Normalize(text)
	for _, phrase := range c.EndingPhrases {
		if strings.Contains(norm, phrase) {
			return true
		}
	}
	return false
}

// IsSimpleConfirmation reports whether text is a short affirmative reply to
// a cart summary. prevBotMessage is the bot's most recent outgoing message
// for this user; without a summary in it the reply is not a confirmation.
func (c *Classifier) IsSimpleConfirmation(text, prevBotMessage string) bool {
	norm := Normalize(text)
	if norm == "" || len(norm) > maxConfirmationLen {
		return false
	}
	if !c.ConfirmationTokens[norm] {
		return false
	}
	prev := strings.ToLower(prevBotMessage)
	for _, marker := range c.SummaryMarkers {
		if strings.Contains(prev, marker) {
			return true
		}
	}
	return false
}

// Classify applies the routing order the orchestrator relies on: commands
// win, then ending phrases, then short confirmations, and anything else is
// free-form text for the extractor.
func (c *Classifier) Classify(text, prevBotMessage string) (Intent, Command) {
	if cmd, ok := c.LookupCommand(text); ok {
		return IntentCommand, cmd
	}
	if c.IsOrderComplete(text) {
		return IntentOrderComplete, ""
	}
	if c.IsSimpleConfirmation(text, prevBotMessage) {
		return IntentConfirmation, ""
	}
	return IntentFreeForm, ""
}
