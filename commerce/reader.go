package commerce

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"shopmate/cache"
	"shopmate/log"
)

// Reader serves commerce reads through the short-TTL cache. Catalog reads
// and order/customer reads carry different TTLs because order state changes
// faster and is security-sensitive. The cache always stores the raw record;
// any authorization check happens in the caller, on every fetch, cache hit
// or not.
type Reader struct {
	api        API
	cache      cache.ReadCache
	catalogTTL time.Duration
	orderTTL   time.Duration
}

// NewReader wraps an API with cached reads
func NewReader(api API, readCache cache.ReadCache, catalogTTL, orderTTL time.Duration) *Reader {
	if catalogTTL <= 0 {
		catalogTTL = 15 * time.Minute
	}
	if orderTTL <= 0 {
		orderTTL = 3 * time.Minute
	}
	return &Reader{
		api:        api,
		cache:      readCache,
		catalogTTL: catalogTTL,
		orderTTL:   orderTTL,
	}
}

// SearchProducts returns catalog matches for a query
func (r *Reader) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	key := cache.Key("search_products", query, strconv.Itoa(limit))
	var products []Product
	if r.lookup(ctx, key, &products) {
		return products, nil
	}

	products, err := r.api.SearchProducts(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, products, r.catalogTTL)
	return products, nil
}

// GetProduct returns one catalog record
func (r *Reader) GetProduct(ctx context.Context, productID string) (*Product, error) {
	key := cache.Key("get_product", productID)
	var product Product
	if r.lookup(ctx, key, &product) {
		return &product, nil
	}

	fetched, err := r.api.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, fetched, r.catalogTTL)
	return fetched, nil
}

// GetOrder returns the raw order record, owning-customer field included
func (r *Reader) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	key := cache.Key("get_order", orderID)
	var order Order
	if r.lookup(ctx, key, &order) {
		return &order, nil
	}

	fetched, err := r.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, fetched, r.orderTTL)
	return fetched, nil
}

// OrdersByCustomer returns a customer's recent orders
func (r *Reader) OrdersByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error) {
	key := cache.Key("orders_by_customer", customerID, strconv.Itoa(limit))
	var orders []Order
	if r.lookup(ctx, key, &orders) {
		return orders, nil
	}

	orders, err := r.api.OrdersByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, orders, r.orderTTL)
	return orders, nil
}

// GetShipment returns the tracking state of an order
func (r *Reader) GetShipment(ctx context.Context, orderID string) (*Shipment, error) {
	key := cache.Key("get_shipment", orderID)
	var shipment Shipment
	if r.lookup(ctx, key, &shipment) {
		return &shipment, nil
	}

	fetched, err := r.api.GetShipment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, fetched, r.orderTTL)
	return fetched, nil
}

// GetCustomerByEmail returns the platform customer record for an email
func (r *Reader) GetCustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error) {
	key := cache.Key("get_customer_by_email", email)
	var record CustomerRecord
	if r.lookup(ctx, key, &record) {
		return &record, nil
	}

	fetched, err := r.api.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, fetched, r.orderTTL)
	return fetched, nil
}

// lookup decodes a cached value into out, reporting whether it was a fresh
// hit. A corrupt entry is treated as a miss.
func (r *Reader) lookup(ctx context.Context, key string, out any) bool {
	if r.cache == nil {
		return false
	}
	b, ok := r.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		log.Log.Warnf("[Commerce] Discarding corrupt cache entry | Key: %s | Error: %v", key, err)
		return false
	}
	return true
}

func (r *Reader) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		log.Log.Warnf("[Commerce] Failed to encode cache entry | Key: %s | Error: %v", key, err)
		return
	}
	r.cache.Set(ctx, key, b, ttl)
}
