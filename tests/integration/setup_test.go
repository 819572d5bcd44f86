package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fintrack/internal/handlers"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Transaction{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	tagService := services.NewTagService(db)
	transactionService := services.NewTransactionService(db, categoryService)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	userHandler := handlers.NewUserHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	tagHandler := handlers.NewTagHandler(tagService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	dashboardHandler := handlers.NewDashboardHandler(transactionService, categoryService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")
	v1.POST("/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(userService))

	protected.POST("/logout", authHandler.Logout)
	protected.GET("/user", authHandler.CurrentUser)
	protected.GET("/dashboard", dashboardHandler.GetDashboard)

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

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// seedUser inserts a user with a known password directly into the database.
// Registration is admin-gated, so the first account of every test is seeded.
func (app *testApp) seedUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:     "Seed User",
		Email:    email,
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	if err := app.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// login authenticates a seeded user and returns the bearer token.
func (app *testApp) login(t *testing.T, email, password string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["token"].(string)
}

// seedAndLogin seeds a user and returns both the record and a bearer token.
func (app *testApp) seedAndLogin(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	user := app.seedUser(t, email, role)
	return user, app.login(t, email, "password123")
}
