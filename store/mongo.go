package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopmate/model"
)

// MongoStore is a MongoDB implementation of Store. Each record is stored
// with its query fields lifted into the document and the full record JSON
// serialized in a data field.
type MongoStore struct {
	client        *mongo.Client
	database      *mongo.Database
	messages      *mongo.Collection
	customers     *mongo.Collection
	conversations *mongo.Collection
}

// MongoStoreConfig holds configuration for MongoStore
type MongoStoreConfig struct {
	URI      string // MongoDB connection URI (e.g., "mongodb://localhost:27017")
	Database string // Database name (default: "shopmate")
}

// NewMongoStore creates a new MongoDB store
func NewMongoStore(config MongoStoreConfig) (*MongoStore, error) {
	if config.URI == "" {
		config.URI = "mongodb://localhost:27017"
	}
	if config.Database == "" {
		config.Database = "shopmate"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(config.Database)
	store := &MongoStore{
		client:        client,
		database:      database,
		messages:      database.Collection("messages"),
		customers:     database.Collection("customers"),
		conversations: database.Collection("conversations"),
	}

	if err := store.initIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return store, nil
}

// initIndexes creates the necessary indexes
func (s *MongoStore) initIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create message log index: %w", err)
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "channel_message_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create channel message id index: %w", err)
	}

	_, err = s.customers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "phone", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create customer phone index: %w", err)
	}

	_, err = s.customers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create customer email index: %w", err)
	}

	_, err = s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "customer_id", Value: 1},
			{Key: "channel", Value: 1},
			{Key: "last_activity", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation lookup index: %w", err)
	}

	return nil
}

// messageDocument represents a message in MongoDB
type messageDocument struct {
	ID               string    `bson:"_id"`
	ConversationID   string    `bson:"conversation_id"`
	Role             string    `bson:"role"`
	ChannelMessageID string    `bson:"channel_message_id"`
	Data             string    `bson:"data"` // JSON serialized Message
	CreatedAt        time.Time `bson:"created_at"`
}

// InsertMessage appends a message to its conversation's log
func (s *MongoStore) InsertMessage(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	doc := messageDocument{
		ID:               msg.ID,
		ConversationID:   msg.ConversationID,
		Role:             msg.Role,
		ChannelMessageID: msg.Metadata.ChannelMessageID,
		Data:             string(data),
		CreatedAt:        msg.CreatedAt,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecentMessages returns the trailing non-system window in chronological order
func (s *MongoStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.messages.Find(ctx, bson.M{
		"conversation_id": conversationID,
		"role":            bson.M{"$ne": "system"},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var newest []*model.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		msg := &model.Message{}
		if err := json.Unmarshal([]byte(doc.Data), msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		newest = append(newest, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	// Newest-first from the query; reverse into chronological order.
	out := make([]*model.Message, 0, len(newest))
	for i := len(newest) - 1; i >= 0; i-- {
		out = append(out, newest[i])
	}
	return out, nil
}

// HasChannelMessageID reports whether a user message with this id exists
func (s *MongoStore) HasChannelMessageID(ctx context.Context, channelMessageID string) (bool, error) {
	count, err := s.messages.CountDocuments(ctx, bson.M{
		"channel_message_id": channelMessageID,
		"role":               "user",
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check channel message id: %w", err)
	}
	return count > 0, nil
}

// customerDocument represents a customer in MongoDB
type customerDocument struct {
	ID        string    `bson:"_id"`
	Phone     string    `bson:"phone"`
	Email     string    `bson:"email"`
	Data      string    `bson:"data"` // JSON serialized Customer
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *customerDocument) toModel() (*model.Customer, error) {
	customer := &model.Customer{}
	if err := json.Unmarshal([]byte(d.Data), customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}
	return customer, nil
}

// FindCustomerByIdentity looks a customer up by phone or email
func (s *MongoStore) FindCustomerByIdentity(ctx context.Context, identity model.ChannelIdentity) (*model.Customer, error) {
	var filter bson.M
	switch {
	case identity.Phone != "":
		filter = bson.M{"phone": identity.Phone}
	case identity.Email != "":
		filter = bson.M{"email": identity.Email}
	default:
		return nil, ErrNotFound
	}

	var doc customerDocument
	err := s.customers.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return doc.toModel()
}

// GetCustomer loads a customer by id
func (s *MongoStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	var doc customerDocument
	err := s.customers.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return doc.toModel()
}

// InsertCustomer stores a new customer
func (s *MongoStore) InsertCustomer(ctx context.Context, customer *model.Customer) error {
	if customer == nil {
		return fmt.Errorf("customer cannot be nil")
	}

	data, err := json.Marshal(customer)
	if err != nil {
		return fmt.Errorf("failed to marshal customer: %w", err)
	}

	doc := customerDocument{
		ID:        customer.ID,
		Phone:     customer.Phone,
		Email:     customer.Email,
		Data:      string(data),
		CreatedAt: customer.CreatedAt,
		UpdatedAt: customer.UpdatedAt,
	}
	if _, err := s.customers.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// UpdateCustomer persists attribute changes
func (s *MongoStore) UpdateCustomer(ctx context.Context, customer *model.Customer) error {
	if customer == nil {
		return fmt.Errorf("customer cannot be nil")
	}

	customer.UpdatedAt = time.Now()
	data, err := json.Marshal(customer)
	if err != nil {
		return fmt.Errorf("failed to marshal customer: %w", err)
	}

	doc := customerDocument{
		ID:        customer.ID,
		Phone:     customer.Phone,
		Email:     customer.Email,
		Data:      string(data),
		CreatedAt: customer.CreatedAt,
		UpdatedAt: customer.UpdatedAt,
	}
	res, err := s.customers.ReplaceOne(ctx, bson.M{"_id": customer.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// conversationDocument represents a conversation in MongoDB
type conversationDocument struct {
	ID           string    `bson:"_id"`
	CustomerID   string    `bson:"customer_id"`
	Channel      string    `bson:"channel"`
	Status       string    `bson:"status"`
	Data         string    `bson:"data"` // JSON serialized Conversation
	LastActivity time.Time `bson:"last_activity"`
	CreatedAt    time.Time `bson:"created_at"`
}

// FindActiveConversation returns the freshest active conversation in window
func (s *MongoStore) FindActiveConversation(ctx context.Context, customerID, channel string, since time.Time) (*model.Conversation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	var doc conversationDocument
	err := s.conversations.FindOne(ctx, bson.M{
		"customer_id":   customerID,
		"channel":       channel,
		"status":        "active",
		"last_activity": bson.M{"$gte": since},
	}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	conv := &model.Conversation{}
	if err := json.Unmarshal([]byte(doc.Data), conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	conv.LastActivity = doc.LastActivity
	return conv, nil
}

// InsertConversation stores a new conversation
func (s *MongoStore) InsertConversation(ctx context.Context, conv *model.Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	doc := conversationDocument{
		ID:           conv.ID,
		CustomerID:   conv.CustomerID,
		Channel:      conv.Channel,
		Status:       string(conv.Status),
		Data:         string(data),
		LastActivity: conv.LastActivity,
		CreatedAt:    conv.CreatedAt,
	}
	if _, err := s.conversations.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// TouchConversation advances last-activity
func (s *MongoStore) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	res, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"last_activity": at}})
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the MongoDB connection
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure implementations satisfy Store
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*MongoStore)(nil)
)
