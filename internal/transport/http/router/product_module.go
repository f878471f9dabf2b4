package router

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"casa-comfort/internal/domain"
	"casa-comfort/internal/feature/product"
	httpez "casa-comfort/internal/transport/http/ez"
)

type ProductModule struct {
	svc *product.Service
	db  *gorm.DB
}

func NewProductModule(svc *product.Service, db *gorm.DB) *ProductModule {
	return &ProductModule{svc: svc, db: db}
}

func (m *ProductModule) MountAPI(api *gin.RouterGroup) {
	ez := httpez.New(api, m.db)

	// --- GET /api/products（公开，走缓存） ---
	httpez.RegisterAction[struct{}, []domain.Product](ez, httpez.Action[struct{}, []domain.Product]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]domain.Product, error) {
			ps, err := m.svc.List(c.Request.Context())
			if err != nil {
				return nil, httpez.Internal("Failed to fetch products", err)
			}
			if ps == nil {
				ps = []domain.Product{}
			}
			return ps, nil
		},
	})

	// --- GET /api/products/:id ---
	httpez.RegisterAction[struct{}, *domain.Product](ez, httpez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (*domain.Product, error) {
			id, err := paramID(c)
			if err != nil {
				return nil, err
			}
			p, err := m.svc.Get(id)
			if err != nil {
				return nil, mapProductErr(err, "Failed to fetch product")
			}
			return p, nil
		},
	})

	// --- POST /api/products（仅管理员） ---
	httpez.RegisterAction[product.Input, *domain.Product](ez, httpez.Action[product.Input, *domain.Product]{
		Method: http.MethodPost,
		Path:   "/products",
		Binder: httpez.BindJSON,
		Admin:  true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *product.Input) (*domain.Product, error) {
			p, err := m.svc.Create(c.Request.Context(), *in)
			if err != nil {
				return nil, mapProductErr(err, "Failed to create product")
			}
			return p, nil
		},
	})

	// --- PUT /api/products/:id（仅管理员） ---
	httpez.RegisterAction[product.Input, *domain.Product](ez, httpez.Action[product.Input, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/products/:id",
		Binder: httpez.BindJSON,
		Admin:  true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *product.Input) (*domain.Product, error) {
			id, err := paramID(c)
			if err != nil {
				return nil, err
			}
			p, err := m.svc.Update(c.Request.Context(), id, *in)
			if err != nil {
				return nil, mapProductErr(err, "Failed to update product")
			}
			return p, nil
		},
	})

	// --- DELETE /api/products/:id（仅管理员，成功 204） ---
	httpez.RegisterAction[struct{}, struct{}](ez, httpez.Action[struct{}, struct{}]{
		Method: http.MethodDelete,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Admin:  true,
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (struct{}, error) {
			id, err := paramID(c)
			if err != nil {
				return struct{}{}, err
			}
			if err := m.svc.Delete(c.Request.Context(), id); err != nil {
				return struct{}{}, mapProductErr(err, "Failed to delete product")
			}
			return struct{}{}, nil
		},
	})

	// --- GET /api/categories ---
	httpez.RegisterAction[struct{}, []string](ez, httpez.Action[struct{}, []string]{
		Method: http.MethodGet,
		Path:   "/categories",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) ([]string, error) {
			cats, err := m.svc.Categories()
			if err != nil {
				return nil, httpez.Internal("Failed to fetch categories", err)
			}
			if cats == nil {
				cats = []string{}
			}
			return cats, nil
		},
	})
}

func paramID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, httpez.BadRequest("ID inválido")
	}
	return uint(id), nil
}

func mapProductErr(err error, fallback string) error {
	var verr *product.ValidationError
	switch {
	case errors.As(err, &verr):
		return httpez.BadRequest(verr.Msg)
	case errors.Is(err, product.ErrProductNotFound):
		return httpez.NotFound("Producto no encontrado")
	default:
		return httpez.Internal(fallback, err)
	}
}
