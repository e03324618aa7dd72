package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crasadev/crasabot/utils"
)

// MetaConfig holds WhatsApp Cloud API credentials.
type MetaConfig struct {
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	// BaseURL overrides the Graph API host, used by tests.
	BaseURL string
}

// MetaService sends outbound WhatsApp messages through the Graph API.
type MetaService struct {
	config     *MetaConfig
	httpClient *http.Client
}

func NewMetaService(config *MetaConfig) *MetaService {
	if config.BaseURL == "" {
		config.BaseURL = "https://graph.facebook.com"
	}
	if config.APIVersion == "" {
		config.APIVersion = "v22.0"
	}
	return &MetaService{
		config: config,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Button is one quick-reply option attached to an interactive message.
type Button struct {
	ID    string
	Title string
}

func (s *MetaService) endpoint() string {
	return fmt.Sprintf("%s/%s/%s/messages", s.config.BaseURL, s.config.APIVersion, s.config.PhoneNumberID)
}

func (s *MetaService) post(payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		utils.ErrorLogger.Printf("Graph API error %d: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}
	return nil
}

// SendText delivers a plain text message to a phone number.
func (s *MetaService) SendText(to, text string) error {
	return s.post(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]interface{}{"body": text},
	})
}

// SendButtons delivers an interactive message with up to three quick-reply
// buttons, the Graph API's limit.
func (s *MetaService) SendButtons(to, body string, buttons []Button) error {
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}
	btns := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, map[string]interface{}{
			"type": "reply",
			"reply": map[string]interface{}{
				"id":    b.ID,
				"title": b.Title,
			},
		})
	}
	return s.post(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "button",
			"body": map[string]interface{}{"text": body},
			"action": map[string]interface{}{
				"buttons": btns,
			},
		},
	})
}

// SendTemplate delivers a pre-approved message template with positional body
// parameters.
func (s *MetaService) SendTemplate(to, templateName, languageCode string, parameters []string) error {
	if languageCode == "" {
		languageCode = "en"
	}
	template := map[string]interface{}{
		"name":     templateName,
		"language": map[string]interface{}{"code": languageCode},
	}
	if len(parameters) > 0 {
		params := make([]map[string]interface{}, 0, len(parameters))
		for _, p := range parameters {
			params = append(params, map[string]interface{}{"type": "text", "text": p})
		}
		template["components"] = []map[string]interface{}{
			{"type": "body", "parameters": params},
		}
	}
	return s.post(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template":          template,
	})
}
