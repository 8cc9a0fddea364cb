package commerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound reports that the platform has no record for the given id
var ErrNotFound = errors.New("commerce: not found")

// API is the read surface of the commerce platform. All operations are
// authenticated reads; this client never writes.
type API interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	OrdersByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
	GetShipment(ctx context.Context, orderID string) (*Shipment, error)
	GetCustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error)
}

// Client talks to the commerce platform's REST API
type Client struct {
	httpClient *resty.Client
}

// NewClient creates an authenticated commerce client
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("commerce baseURL cannot be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{httpClient: httpClient}, nil
}

// SearchProducts queries the catalog by free-text keywords
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out).
		Get("/products")
	if err != nil {
		return nil, fmt.Errorf("commerce SearchProducts request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("SearchProducts", resp)
	}
	return out.Products, nil
}

// GetProduct fetches a single catalog record by id
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var out Product
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/products/" + productID)
	if err != nil {
		return nil, fmt.Errorf("commerce GetProduct request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, apiError("GetProduct", resp)
	}
	return &out, nil
}

// GetOrder fetches an order including its owning-customer field
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/orders/" + orderID)
	if err != nil {
		return nil, fmt.Errorf("commerce GetOrder request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, apiError("GetOrder", resp)
	}
	return &out, nil
}

// OrdersByCustomer lists a customer's most recent orders
func (c *Client) OrdersByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("customer_id", customerID).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out).
		Get("/orders")
	if err != nil {
		return nil, fmt.Errorf("commerce OrdersByCustomer request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("OrdersByCustomer", resp)
	}
	return out.Orders, nil
}

// GetShipment fetches the tracking state of an order
func (c *Client) GetShipment(ctx context.Context, orderID string) (*Shipment, error) {
	var out Shipment
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/orders/" + orderID + "/shipment")
	if err != nil {
		return nil, fmt.Errorf("commerce GetShipment request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, apiError("GetShipment", resp)
	}
	return &out, nil
}

// GetCustomerByEmail looks up the platform customer record by email
func (c *Client) GetCustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error) {
	var out struct {
		Customers []CustomerRecord `json:"customers"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		Get("/customers")
	if err != nil {
		return nil, fmt.Errorf("commerce GetCustomerByEmail request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("GetCustomerByEmail", resp)
	}
	if len(out.Customers) == 0 {
		return nil, ErrNotFound
	}
	return &out.Customers[0], nil
}

func apiError(op string, resp *resty.Response) error {
	return fmt.Errorf("commerce %s error: status %s, body: %s", op, resp.Status(), resp.String())
}
