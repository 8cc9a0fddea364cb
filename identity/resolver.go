// Package identity resolves an inbound channel identity to a durable
// customer record and an active conversation. It is the only writer of
// customer and conversation rows.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopmate/commerce"
	"shopmate/log"
	"shopmate/model"
	"shopmate/store"
)

// CustomerLookup resolves an email to a commerce-platform customer record.
// It is optional; when absent, customers stay unlinked and order tools are
// withheld by the dispatcher.
type CustomerLookup interface {
	GetCustomerByEmail(ctx context.Context, email string) (*commerce.CustomerRecord, error)
}

// Resolver maps channel identities to customers and conversations
type Resolver struct {
	store  store.Store
	lookup CustomerLookup
	window time.Duration

	now func() time.Time
}

// NewResolver creates a resolver. window is how long a conversation stays
// joinable after its last activity; lookup may be nil.
func NewResolver(s store.Store, lookup CustomerLookup, window time.Duration) *Resolver {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Resolver{
		store:  s,
		lookup: lookup,
		window: window,
		now:    time.Now,
	}
}

// Resolve finds or creates the customer for an identity and the active
// conversation for (customer, channel). A missing customer or an expired
// conversation is created fresh; an existing customer gains any newly
// observed identity attributes.
func (r *Resolver) Resolve(ctx context.Context, identity model.ChannelIdentity) (*model.Customer, *model.Conversation, error) {
	if !identity.Valid() {
		return nil, nil, fmt.Errorf("identity carries no phone or email")
	}

	customer, err := r.resolveCustomer(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	conv, err := r.resolveConversation(ctx, customer, identity.Channel)
	if err != nil {
		return nil, nil, err
	}
	return customer, conv, nil
}

func (r *Resolver) resolveCustomer(ctx context.Context, identity model.ChannelIdentity) (*model.Customer, error) {
	customer, err := r.store.FindCustomerByIdentity(ctx, identity)
	if errors.Is(err, store.ErrNotFound) {
		customer = model.NewCustomer(identity)
		r.linkCommerceID(ctx, customer)
		if err := r.store.InsertCustomer(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		log.Log.Infof("[Identity] Created customer | ID: %s | Channel: %s", customer.ID, identity.Channel)
		return customer, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	if r.mergeIdentity(customer, identity) {
		r.linkCommerceID(ctx, customer)
		if err := r.store.UpdateCustomer(ctx, customer); err != nil {
			// The merged attributes are a best-effort enrichment; the
			// resolved customer is still usable for this turn.
			log.Log.Warnf("[Identity] Failed to persist customer attributes | ID: %s | Error: %v", customer.ID, err)
		}
	} else if customer.CommerceID == "" && customer.Email != "" {
		if r.linkCommerceID(ctx, customer) {
			if err := r.store.UpdateCustomer(ctx, customer); err != nil {
				log.Log.Warnf("[Identity] Failed to persist commerce link | ID: %s | Error: %v", customer.ID, err)
			}
		}
	}
	return customer, nil
}

// LinkByEmail binds a customer to the commerce-platform record registered
// under email, typically after the customer typed the address they ordered
// with into the conversation. Returns the commerce id on success and
// commerce.ErrNotFound when no platform account uses that email.
func (r *Resolver) LinkByEmail(ctx context.Context, customerID, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email cannot be empty")
	}
	if r.lookup == nil {
		return "", fmt.Errorf("commerce lookup is not configured")
	}

	customer, err := r.store.GetCustomer(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to load customer: %w", err)
	}
	if customer.CommerceID != "" {
		return customer.CommerceID, nil
	}

	record, err := r.lookup.GetCustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if customer.Email == "" {
		customer.Email = email
	}
	customer.CommerceID = record.ID
	if err := r.store.UpdateCustomer(ctx, customer); err != nil {
		// The link still serves this turn; a later message carrying the
		// email re-establishes it if this write was lost.
		log.Log.Warnf("[Identity] Failed to persist commerce link | ID: %s | Error: %v", customer.ID, err)
	}
	log.Log.Infof("[Identity] Linked customer to commerce record | ID: %s | CommerceID: %s", customer.ID, record.ID)
	return record.ID, nil
}

// mergeIdentity attaches newly observed attributes, reporting whether
// anything changed. Existing values are never overwritten.
func (r *Resolver) mergeIdentity(customer *model.Customer, identity model.ChannelIdentity) bool {
	changed := false
	if customer.Phone == "" && identity.Phone != "" {
		customer.Phone = identity.Phone
		changed = true
	}
	if customer.Email == "" && identity.Email != "" {
		customer.Email = identity.Email
		changed = true
	}
	if customer.DisplayName == "" && identity.DisplayName != "" {
		customer.DisplayName = identity.DisplayName
		changed = true
	}
	return changed
}

// linkCommerceID tries to bind the customer to their commerce-platform
// record by email. Failures are logged and ignored: linking retries on the
// next message that carries the email.
func (r *Resolver) linkCommerceID(ctx context.Context, customer *model.Customer) bool {
	if r.lookup == nil || customer.CommerceID != "" || customer.Email == "" {
		return false
	}
	record, err := r.lookup.GetCustomerByEmail(ctx, customer.Email)
	if errors.Is(err, commerce.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Log.Warnf("[Identity] Commerce lookup failed | Email: %s | Error: %v", customer.Email, err)
		return false
	}
	customer.CommerceID = record.ID
	log.Log.Infof("[Identity] Linked customer to commerce record | ID: %s | CommerceID: %s", customer.ID, record.ID)
	return true
}

func (r *Resolver) resolveConversation(ctx context.Context, customer *model.Customer, channel string) (*model.Conversation, error) {
	now := r.now()
	since := now.Add(-r.window)

	conv, err := r.store.FindActiveConversation(ctx, customer.ID, channel, since)
	if errors.Is(err, store.ErrNotFound) {
		conv = model.NewConversation(customer.ID, channel)
		if err := r.store.InsertConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		log.Log.Infof("[Identity] Started conversation | ID: %s | Customer: %s | Channel: %s", conv.ID, customer.ID, channel)
		return conv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}
	return conv, nil
}
