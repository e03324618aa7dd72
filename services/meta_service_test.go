package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crasadev/crasabot/utils"
)

func newMetaTestServer(t *testing.T, status int, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v22.0/123456/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, capture))

		w.WriteHeader(status)
		w.Write([]byte(`{"messages":[{"id":"wamid.test"}]}`))
	}))
}

func newTestMetaService(baseURL string) *MetaService {
	return NewMetaService(&MetaConfig{
		APIVersion:    "v22.0",
		PhoneNumberID: "123456",
		AccessToken:   "test-token",
		BaseURL:       baseURL,
	})
}

func TestSendText(t *testing.T) {
	utils.InitLogger()
	var payload map[string]interface{}
	server := newMetaTestServer(t, http.StatusOK, &payload)
	defer server.Close()

	svc := newTestMetaService(server.URL)
	err := svc.SendText("5215550300", "Hello there!")
	assert.NoError(t, err)

	assert.Equal(t, "whatsapp", payload["messaging_product"])
	assert.Equal(t, "5215550300", payload["to"])
	assert.Equal(t, "text", payload["type"])
	text := payload["text"].(map[string]interface{})
	assert.Equal(t, "Hello there!", text["body"])
}

func TestSendButtonsCapsAtThree(t *testing.T) {
	utils.InitLogger()
	var payload map[string]interface{}
	server := newMetaTestServer(t, http.StatusOK, &payload)
	defer server.Close()

	svc := newTestMetaService(server.URL)
	err := svc.SendButtons("5215550300", "Pick one", []Button{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B"},
		{ID: "c", Title: "C"},
		{ID: "d", Title: "D"},
	})
	assert.NoError(t, err)

	interactive := payload["interactive"].(map[string]interface{})
	action := interactive["action"].(map[string]interface{})
	buttons := action["buttons"].([]interface{})
	assert.Len(t, buttons, 3)

	first := buttons[0].(map[string]interface{})
	reply := first["reply"].(map[string]interface{})
	assert.Equal(t, "a", reply["id"])
	assert.Equal(t, "A", reply["title"])
}

func TestSendTemplateWithParameters(t *testing.T) {
	utils.InitLogger()
	var payload map[string]interface{}
	server := newMetaTestServer(t, http.StatusOK, &payload)
	defer server.Close()

	svc := newTestMetaService(server.URL)
	err := svc.SendTemplate("5215550300", "order_reminder", "en", []string{"Ana"})
	assert.NoError(t, err)

	template := payload["template"].(map[string]interface{})
	assert.Equal(t, "order_reminder", template["name"])
	components := template["components"].([]interface{})
	body := components[0].(map[string]interface{})
	params := body["parameters"].([]interface{})
	param := params[0].(map[string]interface{})
	assert.Equal(t, "Ana", param["text"])
}

func TestSendTextGraphAPIErrorSurfaces(t *testing.T) {
	utils.InitLogger()
	var payload map[string]interface{}
	server := newMetaTestServer(t, http.StatusUnauthorized, &payload)
	defer server.Close()

	svc := newTestMetaService(server.URL)
	err := svc.SendText("5215550300", "Hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
