package main

import (
	"fmt"
	"net/http"
	"os"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "fintrack/internal/docs" // Import swagger docs
)

// @title           Fintrack API
// @version         1.0
// @description     Fintrack is a personal finance tracker for recording transactions, organizing them with categories and tags, and reviewing spending summaries.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)
	transactionService := services.NewTransactionService(db, categoryService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	userHandler := handlers.NewUserHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	tagHandler := handlers.NewTagHandler(tagService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	dashboardHandler := handlers.NewDashboardHandler(transactionService, categoryService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(userService))

	protected.POST("/logout", authHandler.Logout)
	protected.GET("/user", authHandler.CurrentUser)

	protected.GET("/dashboard", dashboardHandler.GetDashboard)

	// User management routes
	users := protected.Group("/users")
	users.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.RegisterUser)
	users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.GetUsers)
	users.GET("/role/:role", middleware.RequireRoles(models.RoleAdmin), userHandler.GetUsersByRole)
	users.GET("/manager/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.GetUsersByManager)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.DeleteUser)
	users.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin, models.RoleManager), userHandler.UpdateUserStatus)
	users.PATCH("/:id/password", userHandler.ChangePassword)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/system", categoryHandler.GetSystemCategories)
	categories.GET("/custom", categoryHandler.GetCustomCategories)
	categories.GET("/with-transaction-count", categoryHandler.GetCategoriesWithTransactionCount)
	categories.GET("/type/:type", categoryHandler.GetCategoriesByType)
	categories.POST("/merge", categoryHandler.MergeCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Tag routes
	tags := protected.Group("/tags")
	tags.POST("", tagHandler.CreateTag)
	tags.POST("/multiple", tagHandler.CreateMultipleTags)
	tags.GET("", tagHandler.GetTags)
	tags.GET("/frequency", tagHandler.GetTagsByFrequency)
	tags.GET("/search", tagHandler.SearchTags)
	tags.GET("/with-transaction-count", tagHandler.GetTagsWithTransactionCount)
	tags.GET("/:id", tagHandler.GetTag)
	tags.PUT("/:id", tagHandler.UpdateTag)
	tags.DELETE("/:id", tagHandler.DeleteTag)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/summary", transactionHandler.GetSummary)
	transactions.GET("/recurring", transactionHandler.GetRecurringTransactions)
	transactions.GET("/category/:id", transactionHandler.GetTransactionsByCategory)
	transactions.GET("/tag/:id", transactionHandler.GetTransactionsByTag)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/tags", transactionHandler.AddTags)
	transactions.DELETE("/:id/tags", transactionHandler.RemoveTags)

	log.Infof("Starting Fintrack backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
