package domain

type Product struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:191;not null" json:"name"`
	Description string `gorm:"type:text;not null" json:"description"`
	Price       int64  `gorm:"not null" json:"price"` // 最小货币单位（分）
	Image       string `gorm:"size:512;not null" json:"image"`
	Category    string `gorm:"size:64;not null;index" json:"category"`
}

func (Product) TableName() string { return "products" }

type ProductRepository interface {
	List() ([]Product, error)
	FindByID(id uint) (*Product, error)
	Create(p *Product) error
	Update(p *Product) error
	Delete(id uint) (bool, error)
	Categories() ([]string, error)
}
