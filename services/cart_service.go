package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/crasadev/crasabot/models"
)

// CartOp is one mutation to apply to a user's open cart.
type CartOp struct {
	ProductID     uint
	FlavorID      *uint
	Quantity      int
	SubtotalCents int64
	Remove        bool
}

// CartLine is one cart row joined with its product and flavor names, ready
// for display.
type CartLine struct {
	ProductID     uint
	FlavorID      *uint
	ProductName   string
	FlavorName    string
	Quantity      int
	SubtotalCents int64
}

// CartService owns the open-cart lifecycle: one mutable cart per user,
// merge-by-identity line items, and a total that is always rederived from
// the rows rather than patched incrementally.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// OpenCart returns the user's single open cart, creating one if none exists.
func (s *CartService) OpenCart(userID uint) (*models.Sale, error) {
	var cart models.Sale
	err := s.db.Where("user_id = ? AND status = ?", userID, models.SaleStatusCart).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Sale{UserID: userID, Status: models.SaleStatusCart}
		if err := s.db.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOpenCart returns the open cart without creating one.
func (s *CartService) FindOpenCart(userID uint) (*models.Sale, error) {
	var cart models.Sale
	err := s.db.Where("user_id = ? AND status = ?", userID, models.SaleStatusCart).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *CartService) flavorScope(q *gorm.DB, flavorID *uint) *gorm.DB {
	if flavorID == nil {
		return q.Where("flavor_id IS NULL")
	}
	return q.Where("flavor_id = ?", *flavorID)
}

// ApplyOps applies each op in order against the cart. Adds upsert by
// (product, flavor) key, removes delete by key and ignore misses. The first
// persistence error aborts the remaining ops; rows already written in this
// turn stay, and the total is rederived afterwards either way.
func (s *CartService) ApplyOps(cart *models.Sale, ops []CartOp) error {
	var applyErr error
	for _, op := range ops {
		if op.Remove {
			q := s.db.Where("sale_id = ? AND product_id = ?", cart.ID, op.ProductID)
			if err := s.flavorScope(q, op.FlavorID).Delete(&models.SaleItem{}).Error; err != nil {
				applyErr = fmt.Errorf("remove item: %w", err)
				break
			}
			continue
		}

		var item models.SaleItem
		q := s.db.Where("sale_id = ? AND product_id = ?", cart.ID, op.ProductID)
		err := s.flavorScope(q, op.FlavorID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item = models.SaleItem{
				SaleID:        cart.ID,
				ProductID:     op.ProductID,
				FlavorID:      op.FlavorID,
				Quantity:      op.Quantity,
				SubtotalCents: op.SubtotalCents,
			}
			if err := s.db.Create(&item).Error; err != nil {
				applyErr = fmt.Errorf("insert item: %w", err)
				break
			}
			continue
		}
		if err != nil {
			applyErr = fmt.Errorf("lookup item: %w", err)
			break
		}

		updates := map[string]interface{}{
			"quantity":       item.Quantity + op.Quantity,
			"subtotal_cents": item.SubtotalCents + op.SubtotalCents,
		}
		if err := s.db.Model(&item).Updates(updates).Error; err != nil {
			applyErr = fmt.Errorf("merge item: %w", err)
			break
		}
	}

	if _, err := s.RecalculateTotal(cart); err != nil && applyErr == nil {
		applyErr = err
	}
	return applyErr
}

// RecalculateTotal sums the cart's line items and persists the result as the
// cached total.
func (s *CartService) RecalculateTotal(cart *models.Sale) (int64, error) {
	var total int64
	err := s.db.Model(&models.SaleItem{}).
		Where("sale_id = ?", cart.ID).
		Select("COALESCE(SUM(subtotal_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if err := s.db.Model(cart).Update("total_cents", total).Error; err != nil {
		return 0, err
	}
	cart.TotalCents = total
	return total, nil
}

// Lines returns the cart's items joined with product and flavor names.
func (s *CartService) Lines(cartID uint) ([]CartLine, error) {
	var lines []CartLine
	err := s.db.Model(&models.SaleItem{}).
		Select("sale_items.product_id, sale_items.flavor_id, products.name AS product_name, COALESCE(flavors.name, '') AS flavor_name, sale_items.quantity, sale_items.subtotal_cents").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Joins("LEFT JOIN flavors ON flavors.id = sale_items.flavor_id").
		Where("sale_items.sale_id = ?", cartID).
		Order("sale_items.id").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Confirm moves the cart to its confirmed terminal state.
func (s *CartService) Confirm(cart *models.Sale) error {
	if err := s.db.Model(cart).Update("status", models.SaleStatusConfirmed).Error; err != nil {
		return err
	}
	cart.Status = models.SaleStatusConfirmed
	return nil
}

// Cancel moves the cart to its cancelled terminal state.
func (s *CartService) Cancel(cart *models.Sale) error {
	if err := s.db.Model(cart).Update("status", models.SaleStatusCancelled).Error; err != nil {
		return err
	}
	cart.Status = models.SaleStatusCancelled
	return nil
}

// SetTicketPath records where the rendered ticket for a confirmed sale
// lives.
func (s *CartService) SetTicketPath(cart *models.Sale, path string) error {
	if err := s.db.Model(cart).Update("ticket_path", path).Error; err != nil {
		return err
	}
	cart.TicketPath = path
	return nil
}
