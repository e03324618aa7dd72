package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crasadev/crasabot/controllers"
	"github.com/crasadev/crasabot/middlewares"
	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/services"
	"github.com/crasadev/crasabot/utils"
)

const adminToken = "test-admin-token"

type adminSender struct {
	templates []string
}

func (s *adminSender) SendTemplate(to, templateName, languageCode string, parameters []string) error {
	s.templates = append(s.templates, templateName)
	return nil
}

func setupAdminTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:admin_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(&models.User{}, &models.ChatMessage{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func setupAdminRouter(db *gorm.DB, metaURL string) (*gin.Engine, *adminSender) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	userSvc := services.NewUserService(db)
	chatSvc := services.NewChatService(db)
	metaSvc := services.NewMetaService(&services.MetaConfig{
		APIVersion:    "v22.0",
		PhoneNumberID: "123456",
		AccessToken:   "test-token",
		BaseURL:       metaURL,
	})
	sender := &adminSender{}
	templateSvc := services.NewTemplateService(sender)
	reminderSvc := services.NewReminderService(userSvc, templateSvc, time.UTC)

	ctrl := controllers.NewAdminController(userSvc, chatSvc, metaSvc, templateSvc, reminderSvc)

	router := gin.New()
	admin := router.Group("/admin")
	admin.Use(middlewares.AdminAuth(adminToken))
	admin.POST("/messages", ctrl.SendMessage)
	admin.POST("/templates", ctrl.SendTemplate)
	admin.POST("/reminders/run", ctrl.RunReminderSweep)
	admin.POST("/reminders/send", ctrl.SendManualReminder)
	admin.POST("/reminders/schedule", ctrl.SetReminderSchedule)
	admin.DELETE("/users/:phone/chat", ctrl.ClearChatHistory)
	admin.POST("/users/:phone/block", ctrl.SetBlockStatus)
	return router, sender
}

func adminRequest(method, path string, payload interface{}) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	return req
}

func TestAdminAuthRejectsMissingToken(t *testing.T) {
	db := setupAdminTestDB(t)
	router, _ := setupAdminRouter(db, "http://127.0.0.1:0")

	req := httptest.NewRequest("POST", "/admin/reminders/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

func TestSendMessageEndpoint(t *testing.T) {
	db := setupAdminTestDB(t)

	metaServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"id":"wamid.test"}]}`))
	}))
	defer metaServer.Close()

	router, _ := setupAdminRouter(db, metaServer.URL)

	req := adminRequest("POST", "/admin/messages", map[string]interface{}{
		"phone":   "5215550500",
		"message": "Hello from the shop!",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestSendMessageValidatesPayload(t *testing.T) {
	db := setupAdminTestDB(t)
	router, _ := setupAdminRouter(db, "http://127.0.0.1:0")

	req := adminRequest("POST", "/admin/messages", map[string]interface{}{
		"phone": "5215550500",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReminderScheduleAndSweep(t *testing.T) {
	db := setupAdminTestDB(t)
	router, sender := setupAdminRouter(db, "http://127.0.0.1:0")

	db.Create(&models.User{Phone: "5215550500", Name: "Ana"})

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	req := adminRequest("POST", "/admin/reminders/schedule", map[string]interface{}{
		"phone":     "5215550500",
		"next_date": yesterday,
		"frequency": "weekly",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = adminRequest("POST", "/admin/reminders/run", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["sent"])
	assert.Equal(t, []string{"order_reminder"}, sender.templates)
}

func TestReminderScheduleRejectsUnknownFrequency(t *testing.T) {
	db := setupAdminTestDB(t)
	router, _ := setupAdminRouter(db, "http://127.0.0.1:0")

	db.Create(&models.User{Phone: "5215550500", Name: "Ana"})

	req := adminRequest("POST", "/admin/reminders/schedule", map[string]interface{}{
		"phone":     "5215550500",
		"next_date": "2026-09-01",
		"frequency": "hourly",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearChatHistoryEndpoint(t *testing.T) {
	db := setupAdminTestDB(t)
	router, _ := setupAdminRouter(db, "http://127.0.0.1:0")

	user := models.User{Phone: "5215550500", Name: "Ana"}
	db.Create(&user)
	db.Create(&models.ChatMessage{UserID: user.ID, Direction: models.DirectionIncoming, Message: "hi"})
	db.Create(&models.ChatMessage{UserID: user.ID, Direction: models.DirectionOutgoing, Message: "hello!"})

	req := adminRequest("DELETE", "/admin/users/5215550500/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["deleted"])

	var count int64
	db.Model(&models.ChatMessage{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSetBlockStatusEndpoint(t *testing.T) {
	db := setupAdminTestDB(t)
	router, _ := setupAdminRouter(db, "http://127.0.0.1:0")

	db.Create(&models.User{Phone: "5215550500", Name: "Ana"})

	req := adminRequest("POST", "/admin/users/5215550500/block", map[string]interface{}{
		"blocked": true,
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	users := services.NewUserService(db)
	user, err := users.GetByPhone("5215550500")
	assert.NoError(t, err)
	assert.True(t, users.IsBlocked(user))

	// Unblock again.
	req = adminRequest("POST", "/admin/users/5215550500/block", map[string]interface{}{
		"blocked": false,
	})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	user, err = users.GetByPhone("5215550500")
	assert.NoError(t, err)
	assert.False(t, users.IsBlocked(user))
}
