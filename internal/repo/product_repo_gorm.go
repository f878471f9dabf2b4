package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"casa-comfort/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) List() ([]domain.Product, error) {
	var ps []domain.Product
	err := r.db.Order("id asc").Find(&ps).Error
	return ps, err
}

func (r *ProductRepo) FindByID(id uint) (*domain.Product, error) {
	var p domain.Product
	err := r.db.First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *ProductRepo) Create(p *domain.Product) error { return r.db.Create(p).Error }

func (r *ProductRepo) Update(p *domain.Product) error {
	return r.db.Model(p).Select("name", "description", "price", "image", "category").Updates(p).Error
}

func (r *ProductRepo) Delete(id uint) (bool, error) {
	res := r.db.Where("id = ?", id).Delete(&domain.Product{})
	return res.RowsAffected > 0, res.Error
}

// Categories 去重返回分类标签：忽略大小写，保留先出现的写法
func (r *ProductRepo) Categories() ([]string, error) {
	var raw []string
	if err := r.db.Model(&domain.Product{}).Order("id asc").Pluck("category", &raw).Error; err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		k := strings.ToLower(strings.TrimSpace(c))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(c))
	}
	return out, nil
}
