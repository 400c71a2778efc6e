package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"catalog/internal/models"
)

// MemoryStore is an in-memory product table shared by MemoryProductRepository
// sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[uint]models.Product
	nextID   uint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[uint]models.Product),
		nextID:   1,
	}
}

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	store   *MemoryStore
	pending []stagedChange
}

// NewMemoryFactory returns a Factory handing out sessions on store.
func NewMemoryFactory(store *MemoryStore) Factory {
	return func() ProductRepository {
		return &MemoryProductRepository{store: store}
	}
}

// GetAll returns the matching products with the same ordering as the SQL
// implementation.
func (r *MemoryProductRepository) GetAll(ctx context.Context, query ProductQuery) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	brand := strings.TrimSpace(query.Brand)
	productType := strings.TrimSpace(query.Type)

	r.store.mu.RLock()
	productList := make([]models.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		if brand != "" && !strings.EqualFold(p.Brand, brand) {
			continue
		}
		if productType != "" && !strings.EqualFold(p.Type, productType) {
			continue
		}
		productList = append(productList, p)
	}
	r.store.mu.RUnlock()

	sortKey := NormalizeSort(query.Sort)
	sort.Slice(productList, func(i, j int) bool {
		a, b := productList[i], productList[j]
		switch sortKey {
		case SortPriceAsc:
			if c := a.Price.Cmp(b.Price.Decimal); c != 0 {
				return c < 0
			}
		case SortPriceDesc:
			if c := a.Price.Cmp(b.Price.Decimal); c != 0 {
				return c > 0
			}
		default:
			if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
				return an < bn
			}
		}
		return a.ID < b.ID
	})
	return productList, nil
}

// GetByID returns a copy of the stored product, or ErrProductNotFound.
func (r *MemoryProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (r *MemoryProductRepository) Exists(ctx context.Context, id uint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.products[id]
	return ok, nil
}

func (r *MemoryProductRepository) Brands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(p models.Product) string { return p.Brand })
}

func (r *MemoryProductRepository) Types(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(p models.Product) string { return p.Type })
}

func (r *MemoryProductRepository) distinct(ctx context.Context, field func(models.Product) string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	groups := make(map[string]string)
	for _, p := range r.store.products {
		v := field(p)
		key := strings.ToLower(v)
		if current, ok := groups[key]; !ok || v < current {
			groups[key] = v
		}
	}
	r.store.mu.RUnlock()

	values := make([]string, 0, len(groups))
	for _, v := range groups {
		values = append(values, v)
	}

	sort.Strings(values)
	return values, nil
}

func (r *MemoryProductRepository) Add(product *models.Product) {
	r.pending = append(r.pending, stagedChange{kind: changeAdd, product: product})
}

func (r *MemoryProductRepository) Update(product *models.Product) {
	r.pending = append(r.pending, stagedChange{kind: changeUpdate, product: product})
}

func (r *MemoryProductRepository) Delete(product *models.Product) {
	r.pending = append(r.pending, stagedChange{kind: changeDelete, product: product})
}

// SaveChanges applies the staged changes to a copy of the table and swaps it
// in only when every change succeeded.
func (r *MemoryProductRepository) SaveChanges(ctx context.Context) error {
	pending := r.pending
	r.pending = nil
	if len(pending) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return newCommitError(err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	products := make(map[uint]models.Product, len(r.store.products)+len(pending))
	for id, p := range r.store.products {
		products[id] = p
	}
	nextID := r.store.nextID
	assigned := make(map[*models.Product]uint)

	for _, change := range pending {
		p := change.product
		switch change.kind {
		case changeAdd:
			id := p.ID
			if id == 0 {
				id = nextID
			}
			if _, taken := products[id]; taken {
				return &CommitError{
					Reason: ReasonConflict,
					Err:    fmt.Errorf("product with ID %d already exists", id),
				}
			}
			if id >= nextID {
				nextID = id + 1
			}
			assigned[p] = id
			stored := *p
			stored.ID = id
			products[id] = stored
		case changeUpdate:
			if _, ok := products[p.ID]; ok {
				products[p.ID] = *p
			}
		case changeDelete:
			delete(products, p.ID)
		}
	}

	r.store.products = products
	r.store.nextID = nextID
	for p, id := range assigned {
		p.ID = id
	}
	return nil
}
