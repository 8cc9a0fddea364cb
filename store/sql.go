package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"shopmate/model"
)

// SQLStore is a Store over SQLite or Postgres via sqlx. Message metadata is
// serialized to a JSON column; the channel message id is lifted into its own
// indexed column for the dedup lookup. Timestamps are stored as unix
// nanoseconds so both dialects share one schema.
type SQLStore struct {
	db      *sqlx.DB
	backend string
}

// NewSQLStore opens a SQL store. backend is "sqlite" or "postgres"; dsn is
// a file path (or ":memory:") for sqlite and a connection string for
// postgres. The parent directory of a sqlite file is created if missing.
func NewSQLStore(backend, dsn string) (*SQLStore, error) {
	var driver string
	switch backend {
	case "sqlite":
		driver = "sqlite"
		if dsn == "" {
			dsn = ":memory:"
		}
		if dsn != ":memory:" {
			dir := filepath.Dir(dsn)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, fmt.Errorf("failed to create directory for database: %w", err)
				}
			}
		}
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported SQL backend: %s", backend)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLStore{db: db, backend: backend}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the necessary tables
func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		commerce_id TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone);
	CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		last_activity BIGINT NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_lookup ON conversations(customer_id, channel, status, last_activity);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		channel_message_id TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_channel_id ON messages(channel_message_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

type messageRow struct {
	ID               string `db:"id"`
	ConversationID   string `db:"conversation_id"`
	Role             string `db:"role"`
	Content          string `db:"content"`
	ChannelMessageID string `db:"channel_message_id"`
	Metadata         string `db:"metadata"`
	CreatedAt        int64  `db:"created_at"`
}

func (r *messageRow) toModel() (*model.Message, error) {
	var meta model.MessageMetadata
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode message metadata: %w", err)
		}
	}
	return &model.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Role:           r.Role,
		Content:        r.Content,
		Metadata:       meta,
		CreatedAt:      time.Unix(0, r.CreatedAt),
	}, nil
}

// InsertMessage appends a message to its conversation's log
func (s *SQLStore) InsertMessage(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO messages
		(id, conversation_id, role, content, channel_message_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Role, msg.Content,
		msg.Metadata.ChannelMessageID, string(metadata), msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecentMessages returns the trailing non-system window in chronological order
func (s *SQLStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	query := s.db.Rebind(`SELECT id, conversation_id, role, content, channel_message_id, metadata, created_at
		FROM messages
		WHERE conversation_id = ? AND role != 'system'
		ORDER BY created_at DESC
		LIMIT ?`)

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, conversationID, limit); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	// Rows arrive newest-first; reverse into chronological order.
	out := make([]*model.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		msg, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// HasChannelMessageID reports whether a user message with this id exists
func (s *SQLStore) HasChannelMessageID(ctx context.Context, channelMessageID string) (bool, error) {
	query := s.db.Rebind(`SELECT COUNT(1) FROM messages WHERE channel_message_id = ? AND role = 'user'`)
	var count int
	if err := s.db.GetContext(ctx, &count, query, channelMessageID); err != nil {
		return false, fmt.Errorf("failed to check channel message id: %w", err)
	}
	return count > 0, nil
}

type customerRow struct {
	ID          string `db:"id"`
	Phone       string `db:"phone"`
	Email       string `db:"email"`
	DisplayName string `db:"display_name"`
	CommerceID  string `db:"commerce_id"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r *customerRow) toModel() *model.Customer {
	return &model.Customer{
		ID:          r.ID,
		Phone:       r.Phone,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		CommerceID:  r.CommerceID,
		CreatedAt:   time.Unix(0, r.CreatedAt),
		UpdatedAt:   time.Unix(0, r.UpdatedAt),
	}
}

// FindCustomerByIdentity looks a customer up by phone or email
func (s *SQLStore) FindCustomerByIdentity(ctx context.Context, identity model.ChannelIdentity) (*model.Customer, error) {
	var (
		query string
		arg   string
	)
	switch {
	case identity.Phone != "":
		query = `SELECT id, phone, email, display_name, commerce_id, created_at, updated_at
			FROM customers WHERE phone = ? LIMIT 1`
		arg = identity.Phone
	case identity.Email != "":
		query = `SELECT id, phone, email, display_name, commerce_id, created_at, updated_at
			FROM customers WHERE email = ? LIMIT 1`
		arg = identity.Email
	default:
		return nil, ErrNotFound
	}

	var row customerRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return row.toModel(), nil
}

// GetCustomer loads a customer by id
func (s *SQLStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	query := `SELECT id, phone, email, display_name, commerce_id, created_at, updated_at
		FROM customers WHERE id = ? LIMIT 1`

	var row customerRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return row.toModel(), nil
}

// InsertCustomer stores a new customer
func (s *SQLStore) InsertCustomer(ctx context.Context, customer *model.Customer) error {
	if customer == nil {
		return fmt.Errorf("customer cannot be nil")
	}

	query := s.db.Rebind(`INSERT INTO customers
		(id, phone, email, display_name, commerce_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		customer.ID, customer.Phone, customer.Email, customer.DisplayName,
		customer.CommerceID, customer.CreatedAt.UnixNano(), customer.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// UpdateCustomer persists attribute changes
func (s *SQLStore) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	query := s.db.Rebind(`UPDATE customers
		SET phone = ?, email = ?, display_name = ?, commerce_id = ?, updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		customer.Phone, customer.Email, customer.DisplayName, customer.CommerceID,
		time.Now().UnixNano(), customer.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type conversationRow struct {
	ID           string `db:"id"`
	CustomerID   string `db:"customer_id"`
	Channel      string `db:"channel"`
	Status       string `db:"status"`
	LastActivity int64  `db:"last_activity"`
	CreatedAt    int64  `db:"created_at"`
}

func (r *conversationRow) toModel() *model.Conversation {
	return &model.Conversation{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		Channel:      r.Channel,
		Status:       model.ConversationStatus(r.Status),
		LastActivity: time.Unix(0, r.LastActivity),
		CreatedAt:    time.Unix(0, r.CreatedAt),
	}
}

// FindActiveConversation returns the freshest active conversation in window
func (s *SQLStore) FindActiveConversation(ctx context.Context, customerID, channel string, since time.Time) (*model.Conversation, error) {
	query := s.db.Rebind(`SELECT id, customer_id, channel, status, last_activity, created_at
		FROM conversations
		WHERE customer_id = ? AND channel = ? AND status = 'active' AND last_activity >= ?
		ORDER BY last_activity DESC
		LIMIT 1`)

	var row conversationRow
	if err := s.db.GetContext(ctx, &row, query, customerID, channel, since.UnixNano()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return row.toModel(), nil
}

// InsertConversation stores a new conversation
func (s *SQLStore) InsertConversation(ctx context.Context, conv *model.Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	query := s.db.Rebind(`INSERT INTO conversations
		(id, customer_id, channel, status, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		conv.ID, conv.CustomerID, conv.Channel, string(conv.Status),
		conv.LastActivity.UnixNano(), conv.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// TouchConversation advances last-activity
func (s *SQLStore) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	query := s.db.Rebind(`UPDATE conversations SET last_activity = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, at.UnixNano(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database handle
func (s *SQLStore) Close() error {
	return s.db.Close()
}
