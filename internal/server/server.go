// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"tandem/internal/cache"
	"tandem/internal/config"
	"tandem/internal/database"
	"tandem/internal/middleware"
	"tandem/internal/models"
	"tandem/internal/notifications"
	"tandem/internal/repository"
	"tandem/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	mongo          *mongo.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *middleware.TokenManager
	notifier       *notifications.Notifier
	sink           notifications.Sink

	userService       *service.UserService
	friendService     *service.FriendService
	messageService    *service.MessageService
	planService       *service.PlanService
	invitationService *service.InvitationService
	planChatService   *service.PlanChatService
}

// NewServer connects the configured stores and builds a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	var (
		sink        notifications.Sink
		mongoClient *mongo.Client
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		mongoClient, err = notifications.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		mongoSink, err := notifications.NewMongoSink(ctx, mongoClient.Database(cfg.MongoDatabase))
		if err != nil {
			_ = mongoClient.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo notification sink: %w", err)
		}
		sink = mongoSink
		middleware.Logger.Info("notifications stored in mongo", zap.String("database", cfg.MongoDatabase))
	}

	s, err := NewServerWithDeps(cfg, db, redisClient, sink)
	if err != nil {
		return nil, err
	}
	s.mongo = mongoClient
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil. A nil sink stores notifications in db.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, sink notifications.Sink) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if sink == nil {
		sink = notifications.NewGormSink(db)
	}

	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	planRepo := repository.NewPlanRepository(db)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("tandem-api"),
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, redisClient),
		notifier:       notifications.NewNotifier(redisClient),
		sink:           sink,

		userService:       service.NewUserService(userRepo, friendRepo),
		friendService:     service.NewFriendService(friendRepo, userRepo, sink),
		messageService:    service.NewMessageService(repository.NewMessageRepository(db), friendRepo, userRepo),
		planService:       service.NewPlanService(planRepo),
		invitationService: service.NewInvitationService(repository.NewInvitationRepository(db), planRepo, userRepo, sink),
		planChatService:   service.NewPlanChatService(planRepo, repository.NewPlanMessageRepository(db), userRepo),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagates request and trace IDs into the request context for L(ctx).
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	// Credential endpoints refuse traffic when the limiter cannot count it.
	auth.Post("/signup", middleware.RateLimitWithPolicy(s.redis, 3, 10*time.Minute, middleware.FailClosed, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimitWithPolicy(s.redis, 10, 5*time.Minute, middleware.FailClosed, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Get("/:id", s.GetUserProfile)

	friends := protected.Group("/friends")
	friends.Get("/", s.GetFriends)
	friends.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "friend_search"), s.SearchFriends)
	// Specific /requests routes before generic /:userId
	friends.Get("/requests", s.GetPendingRequests)
	friends.Get("/requests/sent", s.GetSentRequests)
	friends.Post("/requests/:requestId/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:requestId/decline", s.DeclineFriendRequest)
	friends.Post("/requests/:userId", middleware.RateLimit(s.redis, 5, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Post("/:userId/block", s.BlockUser)

	messages := protected.Group("/messages")
	messages.Get("/", s.GetConversations)
	messages.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "direct_message"), s.SendDirectMessage)
	messages.Get("/:conversationId", s.GetConversationMessages)
	messages.Patch("/:conversationId", s.MarkConversationRead)

	plans := protected.Group("/shared-plans")
	plans.Get("/", s.GetPlans)
	plans.Post("/", s.CreatePlan)
	// Invitation routes before generic /:planId
	plans.Get("/invitations", s.GetInvitations)
	plans.Patch("/invitations", s.RespondToInvitation)
	plans.Get("/:planId", s.GetPlan)
	plans.Patch("/:planId", s.UpdatePlan)
	plans.Delete("/:planId", s.DeletePlan)
	plans.Patch("/:planId/members", s.ChangeMemberRole)
	plans.Delete("/:planId/members", s.RemoveMember)
	plans.Post("/:planId/invitations", middleware.RateLimit(s.redis, 20, time.Minute, "plan_invite"), s.InviteToPlan)
	plans.Post("/:planId/tasks", s.AddTask)
	plans.Patch("/:planId/tasks/:taskId", s.UpdateTask)
	plans.Delete("/:planId/tasks/:taskId", s.DeleteTask)
	plans.Get("/:planId/messages", s.GetPlanMessages)
	plans.Post("/:planId/messages", middleware.RateLimit(s.redis, 30, time.Minute, "plan_chat"), s.SendPlanMessage)

	notes := protected.Group("/notifications")
	notes.Get("/", s.GetNotifications)
	notes.Post("/read", s.MarkNotificationsRead)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports whether the database and Redis answer a ping.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.tokens)
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Tandem API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: models.CodeValidation})
			}
			middleware.L(c.UserContext()).Error("unhandled request error", zap.Error(err))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", zap.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes every store connection.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", zap.Error(err))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", zap.Error(cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", zap.Error(rerr))
		}
	}

	if s.mongo != nil {
		if merr := s.mongo.Disconnect(ctx); merr != nil {
			middleware.Logger.Error("error disconnecting mongo", zap.Error(merr))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
