package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crasadev/crasabot/bot"
	"github.com/crasadev/crasabot/config"
	"github.com/crasadev/crasabot/controllers"
	"github.com/crasadev/crasabot/middlewares"
	"github.com/crasadev/crasabot/services"
	"github.com/crasadev/crasabot/utils"
)

var errDatabaseDown = errors.New("database unreachable")

// Deps collects the built services the HTTP layer mounts.
type Deps struct {
	Config       *config.Config
	Orchestrator *bot.Orchestrator
	Users        *services.UserService
	Chats        *services.ChatService
	Meta         *services.MetaService
	Templates    *services.TemplateService
	Reminders    *services.ReminderService
}

// SetupRouter wires every route: the public webhook, the ticket downloads
// and the token-guarded admin surface.
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.Config.AllowedOrigins))

	limiter := middlewares.NewRateLimiter(120, 60)
	r.Use(limiter.RateLimit())

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := utils.GetDB().DB()
		if err != nil || sqlDB.Ping() != nil {
			utils.RespondError(c, http.StatusServiceUnavailable, errDatabaseDown)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "ok", nil)
	})

	webhookCtrl := controllers.NewWebhookController(deps.Config.MetaVerifyToken, deps.Orchestrator)
	r.GET("/webhook", webhookCtrl.Verify)
	r.POST("/webhook", webhookCtrl.Receive)

	r.Static("/tickets", deps.Config.TicketDir)

	adminCtrl := controllers.NewAdminController(deps.Users, deps.Chats, deps.Meta, deps.Templates, deps.Reminders)
	admin := r.Group("/admin")
	admin.Use(middlewares.NewStrictRateLimiter())
	admin.Use(middlewares.AdminAuth(deps.Config.AdminToken))
	{
		admin.POST("/messages", adminCtrl.SendMessage)
		admin.POST("/templates", adminCtrl.SendTemplate)
		admin.POST("/reminders/run", adminCtrl.RunReminderSweep)
		admin.POST("/reminders/send", adminCtrl.SendManualReminder)
		admin.POST("/reminders/schedule", adminCtrl.SetReminderSchedule)
		admin.DELETE("/users/:phone/chat", adminCtrl.ClearChatHistory)
		admin.POST("/users/:phone/block", adminCtrl.SetBlockStatus)
	}

	return r
}
