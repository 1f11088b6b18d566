package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/matchline/internal/config"
	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

var (
	postgresQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchline",
			Name:      "postgres_query_latency_seconds",
			Help:      "Latency of PostgreSQL store operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	postgresQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchline",
			Name:      "postgres_query_errors_total",
			Help:      "Total number of failed PostgreSQL store operations",
		},
		[]string{"operation"},
	)
)

// postgres error code for unique_violation
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS wishlists (
	user_id    TEXT NOT NULL,
	target_id  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, target_id)
);

CREATE TABLE IF NOT EXISTS matches (
	user_id    TEXT NOT NULL,
	other_id   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, other_id)
);

CREATE TABLE IF NOT EXISTS connection_requests (
	id          TEXT PRIMARY KEY,
	sender_id   TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_pair ON connection_requests (sender_id, receiver_id);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	kind         TEXT NOT NULL,
	from_user_id TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	is_read      BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS chats (
	id              TEXT PRIMARY KEY,
	participants    TEXT[] NOT NULL,
	last_message_id TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	chat_id    TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	is_seen    BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, created_at);
`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db       *sql.DB
	dbConfig config.DatabaseConfig
}

// NewPostgresStore opens a connection pool and applies the schema
func NewPostgresStore(dbConfig config.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, dbConfig: dbConfig}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return store, nil
}

// Migrate creates missing tables and indexes
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// observe records latency and failures for one operation
func observe(operation string, start time.Time, err error) {
	postgresQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		postgresQueryErrors.WithLabelValues(operation).Inc()
	}
}

func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrAlreadyExists
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// whereBuilder accumulates positional predicates
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	for _, a := range args {
		w.args = append(w.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func requestWhere(f RequestFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Involving != "" {
		w.add("(sender_id = ? OR receiver_id = ?)", f.Involving, f.Involving)
	}
	switch {
	case f.SenderID != "" && f.ReceiverID != "" && f.EitherWay:
		w.add("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			f.SenderID, f.ReceiverID, f.ReceiverID, f.SenderID)
	case f.SenderID != "" && f.EitherWay:
		w.add("(sender_id = ? OR receiver_id = ?)", f.SenderID, f.SenderID)
	case f.ReceiverID != "" && f.EitherWay:
		w.add("(receiver_id = ? OR sender_id = ?)", f.ReceiverID, f.ReceiverID)
	default:
		if f.SenderID != "" {
			w.add("sender_id = ?", f.SenderID)
		}
		if f.ReceiverID != "" {
			w.add("receiver_id = ?", f.ReceiverID)
		}
	}
	return w
}

func notificationWhere(f NotificationFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.FromUserID != "" {
		w.add("from_user_id = ?", f.FromUserID)
	}
	if f.Kind != "" {
		w.add("kind = ?", string(f.Kind))
	}
	if f.RequestID != "" {
		w.add("request_id = ?", f.RequestID)
	}
	return w
}

// --- users ---

func (s *PostgresStore) AddToWishlist(ctx context.Context, userID, targetID string) (added bool, err error) {
	defer func(start time.Time) { observe("add_wishlist", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO wishlists (user_id, target_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to add wishlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) RemoveFromWishlist(ctx context.Context, userID, targetID string) (removed bool, err error) {
	defer func(start time.Time) { observe("remove_wishlist", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wishlists WHERE user_id = $1 AND target_id = $2`, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to remove wishlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresStore) Wishlist(ctx context.Context, userID string) (ids []string, err error) {
	defer func(start time.Time) { observe("wishlist", start, err) }(time.Now())
	return s.queryIDs(ctx,
		`SELECT target_id FROM wishlists WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (s *PostgresStore) AddMatch(ctx context.Context, userID, otherID string) (err error) {
	defer func(start time.Time) { observe("add_match", start, err) }(time.Now())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (user_id, other_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, otherID)
	if err != nil {
		return fmt.Errorf("failed to add match: %w", err)
	}
	return nil
}

func (s *PostgresStore) Matches(ctx context.Context, userID string) (ids []string, err error) {
	defer func(start time.Time) { observe("matches", start, err) }(time.Now())
	return s.queryIDs(ctx,
		`SELECT other_id FROM matches WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (s *PostgresStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- connection requests ---

const requestColumns = `id, sender_id, receiver_id, status, created_at, updated_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	var status string
	if err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Status = models.RequestStatus(status)
	return &req, nil
}

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.ConnectionRequest) (err error) {
	defer func(start time.Time) { observe("create_request", start, err) }(time.Now())
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO connection_requests (`+requestColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.SenderID, req.ReceiverID, string(req.Status), req.CreatedAt, req.UpdatedAt)
	return translate(err)
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (req *models.ConnectionRequest, err error) {
	defer func(start time.Time) { observe("get_request", start, err) }(time.Now())
	req, err = scanRequest(s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM connection_requests WHERE id = $1`, id))
	return req, translate(err)
}

func (s *PostgresStore) FindRequest(ctx context.Context, filter RequestFilter) (*models.ConnectionRequest, error) {
	list, err := s.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, models.ErrNotFound
	}
	return list[0], nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) (out []*models.ConnectionRequest, err error) {
	defer func(start time.Time) { observe("list_requests", start, err) }(time.Now())
	w := requestWhere(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM connection_requests`+w.String()+` ORDER BY created_at DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query connection requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateRequest(ctx context.Context, req *models.ConnectionRequest) (err error) {
	defer func(start time.Time) { observe("update_request", start, err) }(time.Now())
	req.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE connection_requests SET status = $2, updated_at = $3 WHERE id = $1`,
		req.ID, string(req.Status), req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update connection request: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteRequest(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_request", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM connection_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection request: %w", err)
	}
	return requireAffected(res)
}

// --- notifications ---

const notificationColumns = `id, user_id, kind, from_user_id, message, request_id, is_read, created_at`

func scanNotification(row interface{ Scan(...interface{}) error }) (*models.Notification, error) {
	var n models.Notification
	var kind string
	if err := row.Scan(&n.ID, &n.UserID, &kind, &n.FromUserID, &n.Message, &n.RequestID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Kind = models.NotificationKind(kind)
	return &n, nil
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) (err error) {
	defer func(start time.Time) { observe("create_notification", start, err) }(time.Now())
	if err := n.Validate(); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, string(n.Kind), n.FromUserID, n.Message, n.RequestID, n.IsRead, n.CreatedAt)
	return translate(err)
}

func (s *PostgresStore) GetNotification(ctx context.Context, id string) (n *models.Notification, err error) {
	defer func(start time.Time) { observe("get_notification", start, err) }(time.Now())
	n, err = scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	return n, translate(err)
}

func (s *PostgresStore) ListNotifications(ctx context.Context, filter NotificationFilter) (out []*models.Notification, err error) {
	defer func(start time.Time) { observe("list_notifications", start, err) }(time.Now())
	w := notificationWhere(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications`+w.String()+` ORDER BY created_at DESC`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateNotification(ctx context.Context, n *models.Notification) (err error) {
	defer func(start time.Time) { observe("update_notification", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET message = $2, is_read = $3 WHERE id = $1`,
		n.ID, n.Message, n.IsRead)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteNotifications(ctx context.Context, filter NotificationFilter) (removed int, err error) {
	defer func(start time.Time) { observe("delete_notifications", start, err) }(time.Now())
	if filter.empty() {
		return 0, models.ErrInvalidPayload
	}
	w := notificationWhere(filter)
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications`+w.String(), w.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// --- chats ---

func scanChat(row interface{ Scan(...interface{}) error }) (*models.Chat, error) {
	var chat models.Chat
	if err := row.Scan(&chat.ID, pq.Array(&chat.Participants), &chat.LastMessageID, &chat.UpdatedAt); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *PostgresStore) CreateChat(ctx context.Context, chat *models.Chat) (err error) {
	defer func(start time.Time) { observe("create_chat", start, err) }(time.Now())
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	if chat.UpdatedAt.IsZero() {
		chat.UpdatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chats (id, participants, last_message_id, updated_at) VALUES ($1, $2, $3, $4)`,
		chat.ID, pq.Array(chat.Participants), chat.LastMessageID, chat.UpdatedAt)
	return translate(err)
}

func (s *PostgresStore) GetChat(ctx context.Context, id string) (chat *models.Chat, err error) {
	defer func(start time.Time) { observe("get_chat", start, err) }(time.Now())
	chat, err = scanChat(s.db.QueryRowContext(ctx,
		`SELECT id, participants, last_message_id, updated_at FROM chats WHERE id = $1`, id))
	return chat, translate(err)
}

func (s *PostgresStore) FindChatBetween(ctx context.Context, userA, userB string) (chat *models.Chat, err error) {
	defer func(start time.Time) { observe("find_chat", start, err) }(time.Now())
	chat, err = scanChat(s.db.QueryRowContext(ctx,
		`SELECT id, participants, last_message_id, updated_at FROM chats
		 WHERE participants @> $1 ORDER BY updated_at DESC LIMIT 1`,
		pq.Array([]string{userA, userB})))
	return chat, translate(err)
}

func (s *PostgresStore) SetLastMessage(ctx context.Context, chatID, messageID string, at time.Time) (err error) {
	defer func(start time.Time) { observe("set_last_message", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET last_message_id = $2, updated_at = $3 WHERE id = $1`,
		chatID, messageID, at)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteChat(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_chat", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return requireAffected(res)
}

// --- messages ---

const messageColumns = `id, chat_id, sender_id, content, is_seen, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	var msg models.Message
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.IsSeen, &msg.CreatedAt); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) (err error) {
	defer func(start time.Time) { observe("create_message", start, err) }(time.Now())
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, msg.IsSeen, msg.CreatedAt)
	return translate(err)
}

func (s *PostgresStore) GetMessage(ctx context.Context, id string) (msg *models.Message, err error) {
	defer func(start time.Time) { observe("get_message", start, err) }(time.Now())
	msg, err = scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	return msg, translate(err)
}

func (s *PostgresStore) ListMessages(ctx context.Context, chatID string) (out []*models.Message, err error) {
	defer func(start time.Time) { observe("list_messages", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateMessage(ctx context.Context, msg *models.Message) (err error) {
	defer func(start time.Time) { observe("update_message", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = $2, is_seen = $3 WHERE id = $1`,
		msg.ID, msg.Content, msg.IsSeen)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_message", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) DeleteMessages(ctx context.Context, chatID string) (removed int, err error) {
	defer func(start time.Time) { observe("delete_messages", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = $1`, chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) MarkSeen(ctx context.Context, chatID, viewerID string) (marked int, err error) {
	defer func(start time.Time) { observe("mark_seen", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_seen = true WHERE chat_id = $1 AND sender_id <> $2 AND is_seen = false`,
		chatID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages seen: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	logger.Info("PostgreSQL store closed")
	return nil
}

// NewStore builds the Store selected by cfg.StoreType
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.StoreType {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}
}
