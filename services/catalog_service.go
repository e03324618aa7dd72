package services

import (
	"gorm.io/gorm"

	"github.com/crasadev/crasabot/models"
)

// CatalogService is read-only access to products and their flavors.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Products returns the full catalog with flavors preloaded.
func (s *CatalogService) Products() ([]models.Product, error) {
	var products []models.Product
	if err := s.db.Preload("Flavors").Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ProductByID fetches one product with its flavors.
func (s *CatalogService) ProductByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.Preload("Flavors").First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
