package product

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"casa-comfort/internal/core/cache"
	"casa-comfort/internal/domain"
)

var ErrProductNotFound = errors.New("producto no encontrado")

// ValidationError 带用户可读提示（沿用西语文案）
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Input 是创建/更新共用的入参
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

func (in *Input) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	in.Category = strings.TrimSpace(in.Category)

	switch {
	case len(in.Name) < 3:
		return &ValidationError{"El nombre debe tener al menos 3 caracteres"}
	case len(in.Description) < 10:
		return &ValidationError{"La descripción debe tener al menos 10 caracteres"}
	case in.Price < 1:
		return &ValidationError{"El precio debe ser mayor a 0"}
	case !isHTTPURL(in.Image):
		return &ValidationError{"Debe ser una URL válida"}
	case len(in.Category) < 2:
		return &ValidationError{"La categoría debe tener al menos 2 caracteres"}
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

const listCacheKey = "products:list"

type Service struct {
	products domain.ProductRepository
	cache    *cache.Cache // 可为 nil（未启用 redis）
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewService(products domain.ProductRepository, c *cache.Cache, cacheTTL time.Duration, log *zap.Logger) *Service {
	return &Service{products: products, cache: c, cacheTTL: cacheTTL, log: log}
}

// List 走 redis 缓存（singleflight 合并回源），缓存挂了降级直查库
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	if s.cache == nil {
		return s.products.List()
	}
	ps, err := cache.GetOrLoadJSON(s.cache, ctx, listCacheKey, s.cacheTTL, func(context.Context) ([]domain.Product, error) {
		return s.products.List()
	})
	if err != nil {
		s.log.Warn("product cache miss path failed, falling back to db", zap.Error(err))
		return s.products.List()
	}
	return ps, nil
}

func (s *Service) Get(id uint) (*domain.Product, error) {
	p, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		Category:    in.Category,
	}
	if err := s.products.Create(p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Image = in.Image
	p.Category = in.Category
	if err := s.products.Update(p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	ok, err := s.products.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrProductNotFound
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Categories() ([]string, error) {
	return s.products.Categories()
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, listCacheKey)
	}
}
