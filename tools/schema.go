package tools

import "shopmate/llm"

// Tool declarations advertised to the model. Parameters are plain
// JSON-Schema maps; each provider adapter converts them to its native
// format.

var searchProductsSpec = llm.Tool{
	Name:        "search_products",
	Description: "Search the product catalog by free-text keywords. Returns matching products with id, name, price and stock state.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Free-text search keywords, e.g. 'red running shoes'",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of products to return (default 5, max 20)",
			},
		},
		"required": []string{"query"},
	},
}

var getProductDetailsSpec = llm.Tool{
	Name:        "get_product_details",
	Description: "Fetch full details of one product: description, price, and per-size availability.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_id": map[string]any{
				"type":        "string",
				"description": "The product id from a previous search result",
			},
		},
		"required": []string{"product_id"},
	},
}

var checkStockSpec = llm.Tool{
	Name:        "check_stock",
	Description: "Check current stock of a product, optionally for one specific size or variant.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_id": map[string]any{
				"type":        "string",
				"description": "The product id to check",
			},
			"size": map[string]any{
				"type":        "string",
				"description": "Optional size or variant label, e.g. 'M' or '42'",
			},
		},
		"required": []string{"product_id"},
	},
}

var getOrderStatusSpec = llm.Tool{
	Name:        "get_order_status",
	Description: "Get the current status of one of the customer's orders.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id": map[string]any{
				"type":        "string",
				"description": "The order id the customer provided",
			},
		},
		"required": []string{"order_id"},
	},
}

var getOrderDetailsSpec = llm.Tool{
	Name:        "get_order_details",
	Description: "Get the line items and totals of one of the customer's orders.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id": map[string]any{
				"type":        "string",
				"description": "The order id the customer provided",
			},
		},
		"required": []string{"order_id"},
	},
}

var searchCustomerOrdersSpec = llm.Tool{
	Name:        "search_customer_orders",
	Description: "List the customer's recent orders. Use when the customer asks about an order without giving an order id. For a customer without a verified account, pass the email address they say they ordered with to verify them.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"email": map[string]any{
				"type":        "string",
				"description": "The email address the customer ordered with. Required when the conversation has no verified account yet.",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of orders to return (default 5)",
			},
		},
	},
}

var trackShipmentSpec = llm.Tool{
	Name:        "track_shipment",
	Description: "Get carrier, tracking number and delivery estimate for one of the customer's orders.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id": map[string]any{
				"type":        "string",
				"description": "The order id to track",
			},
		},
		"required": []string{"order_id"},
	},
}
