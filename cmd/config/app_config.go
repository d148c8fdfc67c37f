package config

import (
	"Surplus-Share-Backend/internal/api/handlers"
	"Surplus-Share-Backend/internal/api/routes"
	"Surplus-Share-Backend/internal/middleware"
	"Surplus-Share-Backend/internal/utils"
	"Surplus-Share-Backend/internal/utils/mailing"
	"Surplus-Share-Backend/internal/utils/storage"
	"Surplus-Share-Backend/pkg/expiry"
	"Surplus-Share-Backend/pkg/impact"
	"Surplus-Share-Backend/pkg/jwt"
	"Surplus-Share-Backend/pkg/notification"
	"Surplus-Share-Backend/pkg/pickup"
	"Surplus-Share-Backend/pkg/scheduler"
	"Surplus-Share-Backend/pkg/surplus"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB, lifecycle LifecycleConfig) (*fiber.App, *scheduler.Runner, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware("*")
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   lifecycle.Location.String(),
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()
	mailer := mailing.NewMailer(mailing.LoadMailConfig())
	if !mailer.Configured() {
		log.Warnw("smtp is not configured, email notifications are skipped")
	}
	notifier, err := notification.NewDispatcher(notification.NewEmailChannel(mailer))
	if err != nil {
		return nil, nil, err
	}

	var predictor expiry.Predictor
	if url := utils.GetConfig("AI_MODEL_URL"); url != "" {
		predictor = expiry.NewHTTPPredictor(url)
	}

	authorizer, err := pickup.NewAuthorizer(lifecycle.Tolerance, lifecycle.Location)
	if err != nil {
		return nil, nil, err
	}

	// Repository
	surplusRepository := surplus.NewSurplusRepository(db)
	impactRepository := impact.NewImpactRepository(db)

	// Service
	jwtService := jwt.NewJWTService(utils.GetConfig("JWT_SECRET"))
	surplusService := surplus.NewSurplusService(surplusRepository, authorizer, predictor, notifier, s3)
	impactService := impact.NewImpactService(impactRepository, lifecycle.Location)
	schedulerService, err := scheduler.NewSchedulerService(surplusRepository, surplusService, notifier, lifecycle.Scheduler, nil)
	if err != nil {
		return nil, nil, err
	}

	// Handler
	surplusHandler := handlers.NewSurplusHandler(surplusService, validator)
	impactHandler := handlers.NewImpactHandler(impactService, validator)

	// routes
	routesConfig := routes.Config{
		App:            app,
		SurplusHandler: surplusHandler,
		ImpactHandler:  impactHandler,
		Middleware:     middlewares,
		JWTService:     jwtService,
	}
	routesConfig.Setup()

	return app, scheduler.NewRunner(schedulerService, lifecycle.Scheduler.Interval), nil
}
