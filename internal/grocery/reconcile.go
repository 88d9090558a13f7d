package grocery

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"
)

// Store defines the persistence operations for categories and products.
type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, categoryID int64) ([]Product, error)
	FindMatchingProduct(ctx context.Context, categoryID int64, normalizedName, normalizedUnits string) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProductQuantity(ctx context.Context, id int64, quantity string) error
}

// ImageProvisioner provisions a display image for a product name. It returns
// the served image path, or an empty path when no image could be produced.
type ImageProvisioner interface {
	ProvisionImage(ctx context.Context, name string) (string, error)
}

// Reconciler applies a batch of incoming grocery items to the store,
// creating or merging products one item at a time.
type Reconciler struct {
	store  Store
	images ImageProvisioner
}

// NewReconciler creates a new Reconciler.
func NewReconciler(store Store, images ImageProvisioner) *Reconciler {
	return &Reconciler{store: store, images: images}
}

// Reconcile processes items strictly in input order. Sequencing is a
// correctness requirement: a later item's category lookup must observe
// categories created by earlier items in the same batch. There is no
// rollback across items; on a persistence error the already-committed
// products are returned alongside the error.
func (r *Reconciler) Reconcile(ctx context.Context, items []Item) ([]*Product, error) {
	var createdOrUpdated []*Product

	for _, item := range items {
		category, err := r.store.GetCategoryByName(ctx, item.Category)
		if err != nil {
			return createdOrUpdated, fmt.Errorf("failed to look up category %q: %w", item.Category, err)
		}
		if category == nil {
			category, err = r.store.CreateCategory(ctx, item.Category)
			if err != nil {
				return createdOrUpdated, fmt.Errorf("failed to create category %q: %w", item.Category, err)
			}
		}

		normalizedName := Normalize(item.Name)
		normalizedUnits := Normalize(item.Units)

		existing, err := r.store.FindMatchingProduct(ctx, category.ID, normalizedName, normalizedUnits)
		if err != nil {
			return createdOrUpdated, fmt.Errorf("failed to look up product %q: %w", normalizedName, err)
		}

		if existing == nil {
			imagePath, imgErr := r.images.ProvisionImage(ctx, normalizedName)
			if imgErr != nil {
				// Best effort: the product is created without an image.
				log.Printf("%s: no image for %q: %v", CodeImageProvisioningFailed, normalizedName, imgErr)
				imagePath = ""
			}

			expiry := time.Now().AddDate(0, 1, 0)
			product := &Product{
				Name:       normalizedName,
				Quantity:   item.Quantity,
				Units:      normalizedUnits,
				CategoryID: category.ID,
				ImagePath:  imagePath,
				ExpiryDate: &expiry,
			}
			if err := r.store.CreateProduct(ctx, product); err != nil {
				return createdOrUpdated, fmt.Errorf("failed to create product %q: %w", normalizedName, err)
			}
			createdOrUpdated = append(createdOrUpdated, product)
			continue
		}

		existing.Quantity = sumQuantities(existing.Quantity, item.Quantity)
		if err := r.store.UpdateProductQuantity(ctx, existing.ID, existing.Quantity); err != nil {
			return createdOrUpdated, fmt.Errorf("failed to update product %q: %w", normalizedName, err)
		}
		createdOrUpdated = append(createdOrUpdated, existing)
	}

	return createdOrUpdated, nil
}

// sumQuantities adds two quantity strings as floating-point numbers. A
// non-numeric quantity sums to NaN, which is stored as-is; that soft spot is
// accepted rather than hardened, matching the rest of the quantity handling.
func sumQuantities(current, incoming string) string {
	return strconv.FormatFloat(parseQuantity(current)+parseQuantity(incoming), 'f', -1, 64)
}

func parseQuantity(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
