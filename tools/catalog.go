package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"shopmate/commerce"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// searchProductsInput is the argument shape of search_products
type searchProductsInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type getProductDetailsInput struct {
	ProductID string `json:"product_id"`
}

type checkStockInput struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
}

// RegisterCatalogTools wires the catalog read tools onto a registry.
// Catalog reads are public: they need no commerce link and no ownership
// check.
func RegisterCatalogTools(registry *Registry, reader *commerce.Reader) {
	registry.MustRegister(searchProductsSpec, searchProducts(reader))
	registry.MustRegister(getProductDetailsSpec, getProductDetails(reader))
	registry.MustRegister(checkStockSpec, checkStock(reader))
}

func searchProducts(reader *commerce.Reader) Handler {
	return func(ctx context.Context, _ Caller, args json.RawMessage) Result {
		var input searchProductsInput
		if err := decodeArgs(args, &input); err != nil {
			return failure(ErrKindInvalidArgs, "could not parse search_products arguments: %v", err)
		}
		if strings.TrimSpace(input.Query) == "" {
			return failure(ErrKindInvalidArgs, "query is required")
		}
		if input.Limit <= 0 {
			input.Limit = defaultSearchLimit
		}
		if input.Limit > maxSearchLimit {
			input.Limit = maxSearchLimit
		}

		products, err := reader.SearchProducts(ctx, input.Query, input.Limit)
		if err != nil {
			return failure(ErrKindUnavailable, "product search is temporarily unavailable")
		}
		return ok(map[string]any{"products": products, "count": len(products)})
	}
}

func getProductDetails(reader *commerce.Reader) Handler {
	return func(ctx context.Context, _ Caller, args json.RawMessage) Result {
		var input getProductDetailsInput
		if err := decodeArgs(args, &input); err != nil {
			return failure(ErrKindInvalidArgs, "could not parse get_product_details arguments: %v", err)
		}
		if input.ProductID == "" {
			return failure(ErrKindInvalidArgs, "product_id is required")
		}

		product, err := reader.GetProduct(ctx, input.ProductID)
		if errors.Is(err, commerce.ErrNotFound) {
			return failure(ErrKindNotFound, "no product with id %q", input.ProductID)
		}
		if err != nil {
			return failure(ErrKindUnavailable, "product lookup is temporarily unavailable")
		}
		return ok(product)
	}
}

func checkStock(reader *commerce.Reader) Handler {
	return func(ctx context.Context, _ Caller, args json.RawMessage) Result {
		var input checkStockInput
		if err := decodeArgs(args, &input); err != nil {
			return failure(ErrKindInvalidArgs, "could not parse check_stock arguments: %v", err)
		}
		if input.ProductID == "" {
			return failure(ErrKindInvalidArgs, "product_id is required")
		}

		product, err := reader.GetProduct(ctx, input.ProductID)
		if errors.Is(err, commerce.ErrNotFound) {
			return failure(ErrKindNotFound, "no product with id %q", input.ProductID)
		}
		if err != nil {
			return failure(ErrKindUnavailable, "stock lookup is temporarily unavailable")
		}

		if input.Size != "" {
			for _, variant := range product.Variants {
				if strings.EqualFold(variant.Size, input.Size) {
					return ok(map[string]any{
						"product_id": product.ID,
						"size":       variant.Size,
						"quantity":   variant.Quantity,
						"in_stock":   variant.Quantity > 0,
					})
				}
			}
			return failure(ErrKindNotFound, "product %q has no size %q", input.ProductID, input.Size)
		}

		return ok(map[string]any{
			"product_id": product.ID,
			"in_stock":   product.InStock,
			"variants":   product.Variants,
		})
	}
}
