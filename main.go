package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crasadev/crasabot/bot"
	"github.com/crasadev/crasabot/config"
	"github.com/crasadev/crasabot/database"
	"github.com/crasadev/crasabot/router"
	"github.com/crasadev/crasabot/services"
	"github.com/crasadev/crasabot/utils"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InfoLogger = logrus.New()
	utils.ErrorLogger = logrus.New()

	utils.InfoLogger.SetOutput(os.Stdout)
	utils.ErrorLogger.SetOutput(os.Stderr)

	utils.InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	utils.ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Connect(cfg.DBDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate database: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	userSvc := services.NewUserService(db)
	chatSvc := services.NewChatService(db)
	catalogSvc := services.NewCatalogService(db)
	cartSvc := services.NewCartService(db)
	pdfSvc := services.NewPDFService(cfg.TicketDir)
	metaSvc := services.NewMetaService(&services.MetaConfig{
		APIVersion:    cfg.MetaAPIVersion,
		PhoneNumberID: cfg.MetaPhoneNumberID,
		AccessToken:   cfg.MetaAccessToken,
	})
	templateSvc := services.NewTemplateService(metaSvc)
	reminderSvc := services.NewReminderService(userSvc, templateSvc, cfg.Location())

	completer := bot.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	extractor := bot.NewExtractor(completer, cfg.LLMTimeout)
	orchestrator := bot.NewOrchestrator(userSvc, chatSvc, catalogSvc, cartSvc, pdfSvc, metaSvc, extractor)

	scheduler := services.NewReminderScheduler(reminderSvc, cfg.ReminderHour, cfg.Location())
	scheduler.Start()
	defer scheduler.Stop()

	r := router.SetupRouter(router.Deps{
		Config:       cfg,
		Orchestrator: orchestrator,
		Users:        userSvc,
		Chats:        chatSvc,
		Meta:         metaSvc,
		Templates:    templateSvc,
		Reminders:    reminderSvc,
	})

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}
