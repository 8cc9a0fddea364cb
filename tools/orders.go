package tools

import (
	"context"
	"encoding/json"
	"errors"

	"shopmate/commerce"
	"shopmate/log"
)

type orderIDInput struct {
	OrderID string `json:"order_id"`
}

type searchOrdersInput struct {
	Email string `json:"email"`
	Limit int    `json:"limit"`
}

// AccountLinker binds a conversation's customer to their commerce-platform
// record once they provide the email they ordered with.
type AccountLinker interface {
	LinkByEmail(ctx context.Context, customerID, email string) (string, error)
}

// RegisterOrderTools wires the customer-data read tools onto a registry.
// Every order fetch re-checks ownership against the caller's linked
// commerce id, whether the record came from the platform or the cache;
// the model never sees an order it does not own. linker may be nil, in
// which case unverified callers cannot verify themselves by email.
func RegisterOrderTools(registry *Registry, reader *commerce.Reader, linker AccountLinker) {
	registry.MustRegister(getOrderStatusSpec, orderHandler(reader, func(order *commerce.Order) any {
		return map[string]any{
			"order_id":   order.ID,
			"status":     order.Status,
			"created_at": order.CreatedAt,
		}
	}))
	registry.MustRegister(getOrderDetailsSpec, orderHandler(reader, func(order *commerce.Order) any {
		return order
	}))
	registry.MustRegister(searchCustomerOrdersSpec, searchCustomerOrders(reader, linker))
	registry.MustRegister(trackShipmentSpec, trackShipment(reader))
}

// fetchOwnedOrder loads an order and enforces the ownership invariant.
// The comparison runs on every call; a cached record gets exactly the
// same check as a fresh one.
func fetchOwnedOrder(ctx context.Context, reader *commerce.Reader, caller Caller, orderID string) (*commerce.Order, Result) {
	if caller.CommerceID == "" {
		return nil, failure(ErrKindUnauthorized, "this conversation has no verified customer account, so order lookups are not available")
	}

	order, err := reader.GetOrder(ctx, orderID)
	if errors.Is(err, commerce.ErrNotFound) {
		return nil, failure(ErrKindNotFound, "no order with id %q", orderID)
	}
	if err != nil {
		return nil, failure(ErrKindUnavailable, "order lookup is temporarily unavailable")
	}

	if order.CustomerID != caller.CommerceID {
		log.Log.Warnf("[Tools] Ownership check rejected order access | Order: %s | Caller: %s", orderID, caller.CustomerID)
		return nil, failure(ErrKindUnauthorized, "order %q does not belong to this customer", orderID)
	}
	return order, Result{}
}

func orderHandler(reader *commerce.Reader, shape func(*commerce.Order) any) Handler {
	return func(ctx context.Context, caller Caller, args json.RawMessage) Result {
		var input orderIDInput
		if err := decodeArgs(args, &input); err != nil {
			return failure(ErrKindInvalidArgs, "could not parse arguments: %v", err)
		}
		if input.OrderID == "" {
			return failure(ErrKindInvalidArgs, "order_id is required")
		}

		order, fail := fetchOwnedOrder(ctx, reader, caller, input.OrderID)
		if order == nil {
			return fail
		}
		return ok(shape(order))
	}
}

func searchCustomerOrders(reader *commerce.Reader, linker AccountLinker) Handler {
	return func(ctx context.Context, caller Caller, args json.RawMessage) Result {
		var input searchOrdersInput
		if err := decodeArgs(args, &input); err != nil {
			return failure(ErrKindInvalidArgs, "could not parse search_customer_orders arguments: %v", err)
		}

		commerceID := caller.CommerceID
		if commerceID == "" {
			// The email the customer typed into the conversation is the
			// verification path: it is resolved against the platform and
			// the link persisted on the customer record, so the order-id
			// tools open up on the next turn.
			if input.Email == "" || linker == nil {
				return failure(ErrKindUnauthorized, "this conversation has no verified customer account; ask the customer for the email address they ordered with")
			}
			id, err := linker.LinkByEmail(ctx, caller.CustomerID, input.Email)
			if errors.Is(err, commerce.ErrNotFound) {
				return failure(ErrKindNotFound, "no customer account uses the email %q", input.Email)
			}
			if err != nil {
				return failure(ErrKindUnavailable, "account verification is temporarily unavailable")
			}
			commerceID = id
		}

		if input.Limit <= 0 {
			input.Limit = defaultSearchLimit
		}

		// The query is scoped to the server-resolved commerce id, never
		// to a model-supplied one.
		orders, err := reader.OrdersByCustomer(ctx, commerceID, input.Limit)
		if err != nil {
			return failure(ErrKindUnavailable, "order search is temporarily unavailable")
		}
		return ok(map[string]any{"orders": orders, "count": len(orders)})
	}
}

func trackShipment(reader *commerce.Reader) Handler {
	return func(ctx context.Context, caller Caller, args json.RawMessage) Result {
		var input orderIDInput
		if err := decodeArgs(args, &input); err != nil {
			return failure(ErrKindInvalidArgs, "could not parse track_shipment arguments: %v", err)
		}
		if input.OrderID == "" {
			return failure(ErrKindInvalidArgs, "order_id is required")
		}

		// Ownership gates the shipment read: the order is fetched first
		// and the shipment only after the caller is confirmed as owner.
		order, fail := fetchOwnedOrder(ctx, reader, caller, input.OrderID)
		if order == nil {
			return fail
		}

		shipment, err := reader.GetShipment(ctx, order.ID)
		if errors.Is(err, commerce.ErrNotFound) {
			return failure(ErrKindNotFound, "order %q has no shipment yet", order.ID)
		}
		if err != nil {
			return failure(ErrKindUnavailable, "shipment tracking is temporarily unavailable")
		}
		return ok(shipment)
	}
}
