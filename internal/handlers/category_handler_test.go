package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn                    func(actor services.Actor, name string, categoryType models.CategoryType, color *string) (*models.Category, error)
	getCategoriesForUserFn              func(actor services.Actor) ([]models.Category, error)
	getCategoriesByTypeFn               func(actor services.Actor, categoryType models.CategoryType) ([]models.Category, error)
	getSystemCategoriesFn               func() ([]models.Category, error)
	getCustomCategoriesFn               func(actor services.Actor) ([]models.Category, error)
	getCategoriesWithTransactionCountFn func(actor services.Actor) ([]services.CategoryWithCount, error)
	getCategoryByIDFn                   func(actor services.Actor, categoryID uint) (*models.Category, error)
	updateCategoryFn                    func(actor services.Actor, categoryID uint, name string, categoryType *models.CategoryType, color *string) (*models.Category, error)
	deleteCategoryFn                    func(actor services.Actor, categoryID uint) error
	mergeCategoriesFn                   func(actor services.Actor, sourceID, targetID uint) error
}

func (m *mockCategoryService) CreateCategory(actor services.Actor, name string, categoryType models.CategoryType, color *string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(actor, name, categoryType, color)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetCategoriesForUser(actor services.Actor) ([]models.Category, error) {
	if m.getCategoriesForUserFn != nil {
		return m.getCategoriesForUserFn(actor)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetCategoriesByType(actor services.Actor, categoryType models.CategoryType) ([]models.Category, error) {
	if m.getCategoriesByTypeFn != nil {
		return m.getCategoriesByTypeFn(actor, categoryType)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetSystemCategories() ([]models.Category, error) {
	if m.getSystemCategoriesFn != nil {
		return m.getSystemCategoriesFn()
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetCustomCategories(actor services.Actor) ([]models.Category, error) {
	if m.getCustomCategoriesFn != nil {
		return m.getCustomCategoriesFn(actor)
	}
	return []models.Category{}, nil
}

func (m *mockCategoryService) GetCategoriesWithTransactionCount(actor services.Actor) ([]services.CategoryWithCount, error) {
	if m.getCategoriesWithTransactionCountFn != nil {
		return m.getCategoriesWithTransactionCountFn(actor)
	}
	return []services.CategoryWithCount{}, nil
}

func (m *mockCategoryService) GetCategoryByID(actor services.Actor, categoryID uint) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(actor, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) UpdateCategory(actor services.Actor, categoryID uint, name string, categoryType *models.CategoryType, color *string) (*models.Category, error) {
	if m.updateCategoryFn != nil {
		return m.updateCategoryFn(actor, categoryID, name, categoryType, color)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(actor services.Actor, categoryID uint) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(actor, categoryID)
	}
	return nil
}

func (m *mockCategoryService) MergeCategories(actor services.Actor, sourceID, targetID uint) error {
	if m.mergeCategoriesFn != nil {
		return m.mergeCategoriesFn(actor, sourceID, targetID)
	}
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUser(1, models.RoleUser))
	auth.POST("/categories", handler.CreateCategory)
	auth.GET("/categories", handler.GetCategories)
	auth.GET("/categories/type/:type", handler.GetCategoriesByType)
	auth.POST("/categories/merge", handler.MergeCategories)
	auth.GET("/categories/:id", handler.GetCategory)
	auth.PUT("/categories/:id", handler.UpdateCategory)
	auth.DELETE("/categories/:id", handler.DeleteCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(_ services.Actor, name string, catType models.CategoryType, color *string) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: 1}, Name: name, Type: catType, Color: color}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Food","type":"expense","color":"#FF0000"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		cat := result["category"].(map[string]interface{})
		if cat["name"] != "Food" {
			t.Errorf("expected Food, got %v", cat["name"])
		}
	})

	t.Run("returns 422 on invalid type", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Food","type":"loans"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("returns 422 on invalid color", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Food","type":"expense","color":"red"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetCategoriesByType(t *testing.T) {
	t.Run("returns 400 on unknown type", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/type/loans", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes type through", func(t *testing.T) {
		var got models.CategoryType
		catSvc := &mockCategoryService{
			getCategoriesByTypeFn: func(_ services.Actor, categoryType models.CategoryType) ([]models.Category, error) {
				got = categoryType
				return []models.Category{}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/type/income", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got != models.CategoryTypeIncome {
			t.Errorf("expected income, got %s", got)
		}
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Run("returns 403 for system category", func(t *testing.T) {
		catSvc := &mockCategoryService{
			updateCategoryFn: func(_ services.Actor, _ uint, _ string, _ *models.CategoryType, _ *string) (*models.Category, error) {
				return nil, apperrors.ErrSystemCategory
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "PUT", "/categories/1", `{"name":"Hacked"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("returns 404 for unknown category", func(t *testing.T) {
		catSvc := &mockCategoryService{
			updateCategoryFn: func(_ services.Actor, _ uint, _ string, _ *models.CategoryType, _ *string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "PUT", "/categories/999", `{"name":"Missing"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_MergeCategories(t *testing.T) {
	t.Run("returns 200 with success flag", func(t *testing.T) {
		var gotActor services.Actor
		var gotSource, gotTarget uint
		catSvc := &mockCategoryService{
			mergeCategoriesFn: func(actor services.Actor, sourceID, targetID uint) error {
				gotActor = actor
				gotSource, gotTarget = sourceID, targetID
				return nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories/merge", `{"source_id":3,"target_id":4}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotActor.UserID != 1 {
			t.Errorf("expected actor user 1, got %d", gotActor.UserID)
		}
		if gotSource != 3 || gotTarget != 4 {
			t.Errorf("expected merge 3 -> 4, got %d -> %d", gotSource, gotTarget)
		}
		result := parseJSON(t, rec)
		if result["success"] != true {
			t.Errorf("expected success true, got %v", result["success"])
		}
	})

	t.Run("returns 403 for foreign category", func(t *testing.T) {
		catSvc := &mockCategoryService{
			mergeCategoriesFn: func(_ services.Actor, _, _ uint) error {
				return apperrors.ErrForbidden
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories/merge", `{"source_id":3,"target_id":4}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("returns 404 for unknown category", func(t *testing.T) {
		catSvc := &mockCategoryService{
			mergeCategoriesFn: func(_ services.Actor, _, _ uint) error {
				return apperrors.ErrCategoryNotFound
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories/merge", `{"source_id":3,"target_id":999}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for self merge", func(t *testing.T) {
		catSvc := &mockCategoryService{
			mergeCategoriesFn: func(_ services.Actor, _, _ uint) error {
				return apperrors.ErrMergeSameCategory
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories/merge", `{"source_id":3,"target_id":3}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 422 when IDs missing", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories/merge", `{"source_id":3}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}
