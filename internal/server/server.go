package server

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/internal/config"
	"github.com/edulab-vn/topic-management-api/internal/middleware"
	"github.com/edulab-vn/topic-management-api/pkg/cache"
	"github.com/edulab-vn/topic-management-api/pkg/mailer"
	"github.com/edulab-vn/topic-management-api/pkg/storage"
	"github.com/edulab-vn/topic-management-api/pkg/token"

	commentHttp "github.com/edulab-vn/topic-management-api/internal/modules/comment/delivery/http"
	commentRepo "github.com/edulab-vn/topic-management-api/internal/modules/comment/repository"
	commentService "github.com/edulab-vn/topic-management-api/internal/modules/comment/service"

	permissionHttp "github.com/edulab-vn/topic-management-api/internal/modules/permission/delivery/http"
	permissionRepo "github.com/edulab-vn/topic-management-api/internal/modules/permission/repository"
	permissionService "github.com/edulab-vn/topic-management-api/internal/modules/permission/service"

	reportHttp "github.com/edulab-vn/topic-management-api/internal/modules/report/delivery/http"
	reportRepo "github.com/edulab-vn/topic-management-api/internal/modules/report/repository"
	reportService "github.com/edulab-vn/topic-management-api/internal/modules/report/service"

	roleHttp "github.com/edulab-vn/topic-management-api/internal/modules/role/delivery/http"
	roleRepo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	roleService "github.com/edulab-vn/topic-management-api/internal/modules/role/service"

	topicHttp "github.com/edulab-vn/topic-management-api/internal/modules/topic/delivery/http"
	topicRepo "github.com/edulab-vn/topic-management-api/internal/modules/topic/repository"
	topicService "github.com/edulab-vn/topic-management-api/internal/modules/topic/service"

	userHttp "github.com/edulab-vn/topic-management-api/internal/modules/user/delivery/http"
	userRepo "github.com/edulab-vn/topic-management-api/internal/modules/user/repository"
	userService "github.com/edulab-vn/topic-management-api/internal/modules/user/service"
)

const mailDisplayName = "Topic Management"

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	tokens := token.NewService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	cacheStore := cache.NewRedisStore(redisClient)
	mailQueue := mailer.NewRedisQueue(redisClient)

	fileStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	roleRepository := roleRepo.NewRepository(db)
	permissionRepository := permissionRepo.NewRepository(db)
	userRepository := userRepo.NewRepository(db)
	topicRepository := topicRepo.NewRepository(db)
	reportRepository := reportRepo.NewRepository(db)
	commentRepository := commentRepo.NewRepository(db)

	roleSvc := roleService.NewService(roleRepository, permissionRepository)
	roleHandler := roleHttp.NewRoleHandler(roleSvc)

	permissionSvc := permissionService.NewService(permissionRepository)
	permissionHandler := permissionHttp.NewPermissionHandler(permissionSvc)

	userSvc := userService.NewService(userRepository, roleRepository, tokens)
	userHandler := userHttp.NewUserHandler(userSvc)

	topicSvc := topicService.NewService(topicRepository, userRepository, roleRepository, cacheStore, cfg.CacheTTL)
	topicHandler := topicHttp.NewTopicHandler(topicSvc)

	reportSvc := reportService.NewService(
		reportRepository, topicRepository, userRepository, roleRepository,
		cacheStore, cfg.CacheTTL, mailQueue, fileStorage, mailDisplayName,
	)
	reportHandler := reportHttp.NewReportHandler(reportSvc)

	commentSvc := commentService.NewService(commentRepository, topicRepository, roleRepository)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(tokens, roleSvc)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", userHandler.Login)
		auth.POST("/refresh", userHandler.Refresh)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Role/permission graph management is admin-only; these routes have
		// no seeded permission name of their own.
		admin := protected.Group("")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.POST("/roles", roleHandler.Create)
			admin.GET("/roles", roleHandler.FindAll)
			admin.GET("/roles/:id", roleHandler.FindOne)
			admin.PATCH("/roles/:id", roleHandler.Update)
			admin.DELETE("/roles/:id", roleHandler.Remove)
			admin.POST("/roles/:id/permissions", roleHandler.AssignPermissions)
			admin.DELETE("/roles/:id/permissions", roleHandler.RemovePermissions)

			admin.POST("/permissions", permissionHandler.Create)
			admin.GET("/permissions", permissionHandler.FindAll)
			admin.GET("/permissions/:id", permissionHandler.FindOne)
			admin.PATCH("/permissions/:id", permissionHandler.Update)
			admin.DELETE("/permissions/:id", permissionHandler.Remove)
		}

		protected.POST("/users", authMiddleware.RequirePermission("create_user"), userHandler.Register)
		protected.POST("/users/bulk", authMiddleware.RequirePermission("create_many_user"), userHandler.BulkRegister)
		protected.GET("/users", authMiddleware.RequirePermission("get_all_user"), userHandler.FindAll)

		protected.POST("/topics", authMiddleware.RequirePermission("create_topic"), topicHandler.Create)
		protected.GET("/topics", authMiddleware.RequirePermission("get_all_topic"), topicHandler.FindAll)
		protected.GET("/topics/enrolled", authMiddleware.RequirePermission("get_all_topics_enrolled"), topicHandler.FindAllEnrolled)
		protected.GET("/topics/:topicId", authMiddleware.RequirePermission("get_all_topic"), topicHandler.FindOne)
		protected.PATCH("/topics/:topicId", authMiddleware.RequirePermission("edit_topic"), topicHandler.Update)
		protected.DELETE("/topics/:topicId", authMiddleware.RequirePermission("delete_topic"), topicHandler.Remove)

		protected.GET("/topics/:topicId/reports", authMiddleware.RequirePermission("get_report_in_topic"), reportHandler.FindAll)
		protected.POST("/topics/:topicId/reports", authMiddleware.RequirePermission("create_report_in_topic"), reportHandler.Create)
		protected.POST("/reports/upload", authMiddleware.RequirePermission("create_report_in_topic"), reportHandler.Upload)
		protected.PATCH("/reports/:id", authMiddleware.RequirePermission("edit_report_in_topic"), reportHandler.Update)
		protected.DELETE("/reports/:id", authMiddleware.RequirePermission("delete_report_in_topic"), reportHandler.Remove)

		protected.POST("/topics/:topicId/comments", authMiddleware.RequirePermission("create_comment"), commentHandler.Create)
		protected.GET("/topics/:topicId/comments", authMiddleware.RequirePermission("get_comment"), commentHandler.FindAll)
		protected.PATCH("/comments/:id", authMiddleware.RequirePermission("edit_comment"), commentHandler.Update)
		protected.PATCH("/comments/:id/status", authMiddleware.RequirePermission("edit_comment"), commentHandler.UpdateStatus)
		protected.DELETE("/comments/:id", authMiddleware.RequirePermission("delete_comment"), commentHandler.Remove)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
