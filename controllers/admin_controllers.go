package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crasadev/crasabot/services"
	"github.com/crasadev/crasabot/utils"
)

// AdminController exposes the operator endpoints: ad-hoc sends, reminder
// management and per-user moderation.
type AdminController struct {
	Users     *services.UserService
	Chats     *services.ChatService
	Meta      *services.MetaService
	Templates *services.TemplateService
	Reminders *services.ReminderService
}

func NewAdminController(
	users *services.UserService,
	chats *services.ChatService,
	meta *services.MetaService,
	templates *services.TemplateService,
	reminders *services.ReminderService,
) *AdminController {
	return &AdminController{
		Users:     users,
		Chats:     chats,
		Meta:      meta,
		Templates: templates,
		Reminders: reminders,
	}
}

// SendMessage delivers an arbitrary text message to a phone number.
func (ac *AdminController) SendMessage(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := ac.Meta.SendText(req.Phone, req.Message); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Admin message sent to %s", req.Phone)
	utils.RespondJSON(c, http.StatusOK, "Message sent", nil)
}

// SendTemplate delivers a registered message template.
func (ac *AdminController) SendTemplate(c *gin.Context) {
	var req struct {
		Phone      string   `json:"phone" binding:"required"`
		Template   string   `json:"template" binding:"required"`
		Parameters []string `json:"parameters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := ac.Templates.Send(req.Phone, req.Template, req.Parameters); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Template %s sent to %s", req.Template, req.Phone)
	utils.RespondJSON(c, http.StatusOK, "Template sent", nil)
}

// RunReminderSweep triggers the daily reminder pass immediately.
func (ac *AdminController) RunReminderSweep(c *gin.Context) {
	stats, err := ac.Reminders.ProcessReminders()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reminder sweep complete", stats)
}

// SendManualReminder sends the reminder template to one user right now.
func (ac *AdminController) SendManualReminder(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := ac.Reminders.SendManual(req.Phone); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reminder sent", nil)
}

// SetReminderSchedule stores a user's next reminder date and frequency.
func (ac *AdminController) SetReminderSchedule(c *gin.Context) {
	var req struct {
		Phone     string `json:"phone" binding:"required"`
		NextDate  string `json:"next_date" binding:"required"`
		Frequency string `json:"frequency" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	switch req.Frequency {
	case services.FrequencyWeekly, services.FrequencyBiweekly, services.FrequencyMonthly:
	default:
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown frequency %q", req.Frequency))
		return
	}

	user, err := ac.Users.SetReminderSchedule(req.Phone, req.NextDate, req.Frequency)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reminder schedule updated", user)
}

// ClearChatHistory deletes every stored chat turn for a user.
func (ac *AdminController) ClearChatHistory(c *gin.Context) {
	phone := c.Param("phone")
	user, err := ac.Users.GetByPhone(phone)
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("user %s not found", phone))
		return
	}

	deleted, err := ac.Chats.ClearHistory(user.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Cleared %d chat turns for %s", deleted, phone)
	utils.RespondJSON(c, http.StatusOK, "Chat history cleared", gin.H{"deleted": deleted})
}

// SetBlockStatus flips the blocked flag for a user.
func (ac *AdminController) SetBlockStatus(c *gin.Context) {
	phone := c.Param("phone")
	var req struct {
		Blocked *bool `json:"blocked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := ac.Users.SetBlocked(phone, *req.Blocked)
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("user %s not found", phone))
		return
	}
	utils.InfoLogger.Printf("User %s blocked=%v", phone, *req.Blocked)
	utils.RespondJSON(c, http.StatusOK, "Block status updated", user)
}
