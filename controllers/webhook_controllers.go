package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crasadev/crasabot/bot"
	"github.com/crasadev/crasabot/utils"
)

// WebhookController receives WhatsApp Cloud API callbacks.
type WebhookController struct {
	VerifyToken  string
	Orchestrator *bot.Orchestrator
}

func NewWebhookController(verifyToken string, orchestrator *bot.Orchestrator) *WebhookController {
	return &WebhookController{
		VerifyToken:  verifyToken,
		Orchestrator: orchestrator,
	}
}

// webhookPayload mirrors the slice of the Cloud API notification format the
// bot cares about.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []json.RawMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive struct {
		Type        string `json:"type"`
		ButtonReply struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
	Button struct {
		Text string `json:"text"`
	} `json:"button"`
}

// Verify answers Meta's subscription handshake on GET.
func (wc *WebhookController) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == wc.VerifyToken {
		utils.InfoLogger.Printf("Webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	utils.ErrorLogger.Printf("Webhook verification failed (mode=%s)", mode)
	c.Status(http.StatusForbidden)
}

// Receive handles inbound notification batches. Status updates and other
// non-message events are acknowledged and ignored.
func (wc *WebhookController) Receive(c *gin.Context) {
	// A non-2xx answer makes Meta retry the delivery, so unparseable
	// batches are logged and acknowledged rather than rejected.
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.ErrorLogger.Printf("Ignoring unparseable webhook batch: %v", err)
		utils.RespondJSON(c, http.StatusOK, "EVENT_RECEIVED", nil)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, raw := range change.Value.Messages {
				var msg webhookMessage
				if err := json.Unmarshal(raw, &msg); err != nil {
					utils.ErrorLogger.Printf("Skipping unparseable message: %v", err)
					continue
				}
				text := messageText(msg)
				if text == "" {
					continue
				}
				if err := wc.Orchestrator.HandleMessage(c.Request.Context(), msg.From, names[msg.From], text, raw); err != nil {
					utils.ErrorLogger.Printf("Turn failed for %s: %v", msg.From, err)
				}
			}
		}
	}

	utils.RespondJSON(c, http.StatusOK, "EVENT_RECEIVED", nil)
}

// messageText flattens the supported message types into the text the
// classifier sees. Button replies carry their title so they route like
// typed keywords.
func messageText(msg webhookMessage) string {
	switch msg.Type {
	case "text":
		return msg.Text.Body
	case "interactive":
		return msg.Interactive.ButtonReply.Title
	case "button":
		return msg.Button.Text
	default:
		return ""
	}
}
