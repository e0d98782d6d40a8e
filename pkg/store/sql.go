package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salesmind/salesmind/pkg/config"
	"github.com/salesmind/salesmind/pkg/psychology"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements Store over postgres, mysql or sqlite.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const createClientsTableSQL = `
CREATE TABLE IF NOT EXISTS clients (
    id VARCHAR(64) PRIMARY KEY,
    alias VARCHAR(255) NOT NULL,
    archetype VARCHAR(255),
    notes TEXT,
    tags TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const createSessionsTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(64) PRIMARY KEY,
    client_id VARCHAR(64),
    session_type VARCHAR(64),
    status VARCHAR(32) NOT NULL,
    notes TEXT,
    summary TEXT,
    outcome VARCHAR(64),
    cumulative_psychology TEXT,
    psychology_confidence INTEGER NOT NULL DEFAULT 0,
    active_clarifying_questions TEXT,
    customer_archetype TEXT,
    holistic_profile TEXT,
    sales_indicators TEXT,
    psychology_updated_at TIMESTAMP NULL,
    start_ts TIMESTAMP NOT NULL,
    end_ts TIMESTAMP NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_client_id ON sessions(client_id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

const createInteractionsTableSQL = `
CREATE TABLE IF NOT EXISTS interactions (
    id VARCHAR(64) PRIMARY KEY,
    session_id VARCHAR(64) NOT NULL,
    ts TIMESTAMP NOT NULL,
    user_input TEXT NOT NULL,
    ai_response TEXT,
    feedback TEXT,
    parent_interaction_id VARCHAR(64),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_interactions_session_id ON interactions(session_id);
CREATE INDEX IF NOT EXISTS idx_interactions_ts ON interactions(session_id, ts);
`

// NewSQLStore wraps an open connection. The schema is created on first use.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":

	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// NewSQLStoreFromConfig opens the configured database and verifies it is
// reachable before handing out the store.
func NewSQLStoreFromConfig(cfg *config.DatabaseConfig) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	driverName := cfg.Driver
	if driverName == "sqlite" {
		driverName = "sqlite3"
	}

	db, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	return NewSQLStore(db, cfg.Driver)
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range []string{createClientsTableSQL, createSessionsTableSQL, createInteractionsTableSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Clients

func (s *SQLStore) CreateClient(ctx context.Context, client *Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	query := `
INSERT INTO clients (id, alias, archetype, notes, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`
	if s.dialect == "postgres" {
		query = `
INSERT INTO clients (id, alias, archetype, notes, tags, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	}

	_, err := s.db.ExecContext(ctx, query,
		client.ID, client.Alias, client.Archetype, client.Notes,
		marshalBlob(client.Tags), client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}

	return nil
}

func (s *SQLStore) GetClient(ctx context.Context, id string) (*Client, error) {
	query := `SELECT id, alias, archetype, notes, tags, created_at, updated_at FROM clients WHERE id = ?`
	if s.dialect == "postgres" {
		query = `SELECT id, alias, archetype, notes, tags, created_at, updated_at FROM clients WHERE id = $1`
	}

	client, err := scanClient(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query client: %w", err)
	}

	return client, nil
}

func (s *SQLStore) ListClients(ctx context.Context, page, size int) ([]Client, int, error) {
	page, size = normalizePage(page, size)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	query := `
SELECT id, alias, archetype, notes, tags, created_at, updated_at
FROM clients ORDER BY created_at DESC LIMIT ? OFFSET ?
`
	if s.dialect == "postgres" {
		query = `
SELECT id, alias, archetype, notes, tags, created_at, updated_at
FROM clients ORDER BY created_at DESC LIMIT $1 OFFSET $2
`
	}

	rows, err := s.db.QueryContext(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating clients: %w", err)
	}

	return clients, total, nil
}

func (s *SQLStore) UpdateClient(ctx context.Context, client *Client) error {
	client.UpdatedAt = time.Now().UTC()

	query := `UPDATE clients SET alias = ?, archetype = ?, notes = ?, tags = ?, updated_at = ? WHERE id = ?`
	if s.dialect == "postgres" {
		query = `UPDATE clients SET alias = $1, archetype = $2, notes = $3, tags = $4, updated_at = $5 WHERE id = $6`
	}

	res, err := s.db.ExecContext(ctx, query,
		client.Alias, client.Archetype, client.Notes, marshalBlob(client.Tags),
		client.UpdatedAt, client.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLStore) DeleteClient(ctx context.Context, id string) error {
	query := `DELETE FROM clients WHERE id = ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM clients WHERE id = $1`
	}

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// ---------------------------------------------------------------------------
// Sessions

const sessionColumns = `id, client_id, session_type, status, notes, summary, outcome,
cumulative_psychology, psychology_confidence, active_clarifying_questions,
customer_archetype, holistic_profile, sales_indicators, psychology_updated_at,
start_ts, end_ts`

func (s *SQLStore) CreateSession(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = StatusActive
	}
	if session.StartTS.IsZero() {
		session.StartTS = time.Now().UTC()
	}

	query := `
INSERT INTO sessions (` + sessionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	if s.dialect == "postgres" {
		query = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`
	}

	_, err := s.db.ExecContext(ctx, query,
		session.ID, nullString(session.ClientID), session.SessionType, session.Status,
		session.Notes, session.Summary, session.Outcome,
		marshalBlob(session.CumulativePsychology), session.PsychologyConfidence,
		marshalBlob(session.ActiveClarifyingQueries), marshalBlob(session.CustomerArchetype),
		marshalBlob(session.HolisticProfile), marshalBlob(session.SalesIndicators),
		session.PsychologyUpdatedAt, session.StartTS, session.EndTS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	if s.dialect == "postgres" {
		query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	}

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, clientID string, page, size int) ([]Session, int, error) {
	page, size = normalizePage(page, size)

	countQuery := `SELECT COUNT(*) FROM sessions`
	listQuery := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY start_ts DESC LIMIT ? OFFSET ?`
	args := []interface{}{size, (page - 1) * size}
	countArgs := []interface{}{}

	if clientID != "" {
		countQuery = `SELECT COUNT(*) FROM sessions WHERE client_id = ?`
		listQuery = `SELECT ` + sessionColumns + ` FROM sessions WHERE client_id = ? ORDER BY start_ts DESC LIMIT ? OFFSET ?`
		args = []interface{}{clientID, size, (page - 1) * size}
		countArgs = []interface{}{clientID}
	}

	if s.dialect == "postgres" {
		if clientID != "" {
			countQuery = `SELECT COUNT(*) FROM sessions WHERE client_id = $1`
			listQuery = `SELECT ` + sessionColumns + ` FROM sessions WHERE client_id = $1 ORDER BY start_ts DESC LIMIT $2 OFFSET $3`
		} else {
			listQuery = `SELECT ` + sessionColumns + ` FROM sessions ORDER BY start_ts DESC LIMIT $1 OFFSET $2`
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, total, nil
}

func (s *SQLStore) EndSession(ctx context.Context, id, outcome, summary string) (*Session, error) {
	now := time.Now().UTC()

	query := `UPDATE sessions SET status = ?, outcome = ?, summary = ?, end_ts = ? WHERE id = ?`
	if s.dialect == "postgres" {
		query = `UPDATE sessions SET status = $1, outcome = $2, summary = $3, end_ts = $4 WHERE id = $5`
	}

	res, err := s.db.ExecContext(ctx, query, StatusEnded, outcome, summary, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrSessionNotFound
	}

	return s.GetSession(ctx, id)
}

func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	// Interactions go first so sqlite without foreign_keys=on does not leak rows.
	delInteractions := `DELETE FROM interactions WHERE session_id = ?`
	delSession := `DELETE FROM sessions WHERE id = ?`
	if s.dialect == "postgres" {
		delInteractions = `DELETE FROM interactions WHERE session_id = $1`
		delSession = `DELETE FROM sessions WHERE id = $1`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, delInteractions, id); err != nil {
		return fmt.Errorf("failed to delete interactions: %w", err)
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, delSession, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil && n == 0 {
		err = ErrSessionNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Analysis state

func (s *SQLStore) GetSessionContext(ctx context.Context, sessionID string) (*SessionContext, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	interactions, err := s.listAllInteractions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sc := &SessionContext{Session: session, Interactions: interactions}

	if session.ClientID != "" {
		client, err := s.GetClient(ctx, session.ClientID)
		if err != nil && err != ErrNotFound {
			return nil, err
		}
		sc.Client = client
	}

	return sc, nil
}

func (s *SQLStore) PersistAnalysis(ctx context.Context, sessionID string, update AnalysisUpdate) error {
	query := `
UPDATE sessions SET
    cumulative_psychology = ?,
    psychology_confidence = ?,
    active_clarifying_questions = ?,
    customer_archetype = ?,
    holistic_profile = ?,
    sales_indicators = ?,
    psychology_updated_at = ?
WHERE id = ?
`
	if s.dialect == "postgres" {
		query = `
UPDATE sessions SET
    cumulative_psychology = $1,
    psychology_confidence = $2,
    active_clarifying_questions = $3,
    customer_archetype = $4,
    holistic_profile = $5,
    sales_indicators = $6,
    psychology_updated_at = $7
WHERE id = $8
`
	}

	res, err := s.db.ExecContext(ctx, query,
		marshalBlob(update.CumulativePsychology), update.PsychologyConfidence,
		marshalBlob(update.ActiveClarifyingQueries), marshalBlob(update.CustomerArchetype),
		marshalBlob(update.HolisticProfile), marshalBlob(update.SalesIndicators),
		update.PsychologyUpdatedAt, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to persist analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// RecordClarificationAnswer removes the answered question and appends the
// answer to the profile's observations in one transaction.
func (s *SQLStore) RecordClarificationAnswer(ctx context.Context, sessionID, questionID, answer string) (*SessionContext, error) {
	selectQuery := `SELECT cumulative_psychology, active_clarifying_questions FROM sessions WHERE id = ?`
	updateQuery := `UPDATE sessions SET cumulative_psychology = ?, active_clarifying_questions = ?, psychology_updated_at = ? WHERE id = ?`
	if s.dialect == "postgres" {
		selectQuery = `SELECT cumulative_psychology, active_clarifying_questions FROM sessions WHERE id = $1 FOR UPDATE`
		updateQuery = `UPDATE sessions SET cumulative_psychology = $1, active_clarifying_questions = $2, psychology_updated_at = $3 WHERE id = $4`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var psychologyJSON, questionsJSON sql.NullString
	err = tx.QueryRowContext(ctx, selectQuery, sessionID).Scan(&psychologyJSON, &questionsJSON)
	if err == sql.ErrNoRows {
		err = ErrSessionNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	var profile psychology.Profile
	if err = unmarshalBlob(psychologyJSON, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode psychology blob: %w", err)
	}

	var questions []psychology.ClarifyingQuestion
	if err = unmarshalBlob(questionsJSON, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode clarifying questions: %w", err)
	}

	remaining := make([]psychology.ClarifyingQuestion, 0, len(questions))
	var answered *psychology.ClarifyingQuestion
	for _, q := range questions {
		if q.ID == questionID {
			q := q
			answered = &q
			continue
		}
		remaining = append(remaining, q)
	}
	if answered == nil {
		err = ErrQuestionNotFound
		return nil, err
	}

	now := time.Now().UTC()
	profile.Observations = append(profile.Observations, psychology.Observation{
		Question: answered.Question,
		Answer:   answer,
		TS:       now,
		Target:   answered.PsychologicalTarget,
	})

	_, err = tx.ExecContext(ctx, updateQuery,
		marshalBlob(&profile), marshalBlob(remaining), now, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record clarification answer: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetSessionContext(ctx, sessionID)
}

// ---------------------------------------------------------------------------
// Interactions

const interactionColumns = `id, session_id, ts, user_input, ai_response, feedback, parent_interaction_id`

func (s *SQLStore) AppendInteraction(ctx context.Context, sessionID string, in NewInteraction) (*Interaction, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	interaction := &Interaction{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		TS:                  time.Now().UTC(),
		UserInput:           in.UserInput,
		AIResponse:          in.AIResponse,
		ParentInteractionID: in.ParentInteractionID,
	}

	query := `
INSERT INTO interactions (` + interactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
`
	if s.dialect == "postgres" {
		query = `
INSERT INTO interactions (` + interactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	}

	_, err := s.db.ExecContext(ctx, query,
		interaction.ID, interaction.SessionID, interaction.TS, interaction.UserInput,
		marshalBlob(interaction.AIResponse), marshalBlob(interaction.Feedback),
		nullString(interaction.ParentInteractionID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert interaction: %w", err)
	}

	return interaction, nil
}

func (s *SQLStore) ListInteractions(ctx context.Context, sessionID string, page, size int) ([]Interaction, int, error) {
	page, size = normalizePage(page, size)

	countQuery := `SELECT COUNT(*) FROM interactions WHERE session_id = ?`
	listQuery := `SELECT ` + interactionColumns + ` FROM interactions WHERE session_id = ? ORDER BY ts ASC LIMIT ? OFFSET ?`
	if s.dialect == "postgres" {
		countQuery = `SELECT COUNT(*) FROM interactions WHERE session_id = $1`
		listQuery = `SELECT ` + interactionColumns + ` FROM interactions WHERE session_id = $1 ORDER BY ts ASC LIMIT $2 OFFSET $3`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, sessionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count interactions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, sessionID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	interactions, err := collectInteractions(rows)
	if err != nil {
		return nil, 0, err
	}

	return interactions, total, nil
}

func (s *SQLStore) listAllInteractions(ctx context.Context, sessionID string) ([]Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE session_id = ? ORDER BY ts ASC`
	if s.dialect == "postgres" {
		query = `SELECT ` + interactionColumns + ` FROM interactions WHERE session_id = $1 ORDER BY ts ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	return collectInteractions(rows)
}

func (s *SQLStore) AddFeedback(ctx context.Context, interactionID string, fb Feedback) (*Interaction, error) {
	selectQuery := `SELECT feedback FROM interactions WHERE id = ?`
	updateQuery := `UPDATE interactions SET feedback = ? WHERE id = ?`
	if s.dialect == "postgres" {
		selectQuery = `SELECT feedback FROM interactions WHERE id = $1 FOR UPDATE`
		updateQuery = `UPDATE interactions SET feedback = $1 WHERE id = $2`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var feedbackJSON sql.NullString
	err = tx.QueryRowContext(ctx, selectQuery, interactionID).Scan(&feedbackJSON)
	if err == sql.ErrNoRows {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction feedback: %w", err)
	}

	var feedback []Feedback
	if err = unmarshalBlob(feedbackJSON, &feedback); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	feedback = append(feedback, fb)

	_, err = tx.ExecContext(ctx, updateQuery, marshalBlob(feedback), interactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.getInteraction(ctx, interactionID)
}

func (s *SQLStore) getInteraction(ctx context.Context, interactionID string) (*Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE id = ?`
	if s.dialect == "postgres" {
		query = `SELECT ` + interactionColumns + ` FROM interactions WHERE id = $1`
	}

	interaction, err := scanInteraction(s.db.QueryRowContext(ctx, query, interactionID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction: %w", err)
	}

	return interaction, nil
}

// ---------------------------------------------------------------------------
// Row scanning

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*Client, error) {
	var client Client
	var archetype, notes, tags sql.NullString

	if err := row.Scan(&client.ID, &client.Alias, &archetype, &notes, &tags,
		&client.CreatedAt, &client.UpdatedAt); err != nil {
		return nil, err
	}

	client.Archetype = archetype.String
	client.Notes = notes.String
	if err := unmarshalBlob(tags, &client.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return &client, nil
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var clientID, sessionType, notes, summary, outcome sql.NullString
	var psychologyJSON, questionsJSON, archetypeJSON, holisticJSON, indicatorsJSON sql.NullString
	var psychologyUpdatedAt, endTS sql.NullTime

	if err := row.Scan(
		&session.ID, &clientID, &sessionType, &session.Status, &notes, &summary, &outcome,
		&psychologyJSON, &session.PsychologyConfidence, &questionsJSON,
		&archetypeJSON, &holisticJSON, &indicatorsJSON, &psychologyUpdatedAt,
		&session.StartTS, &endTS,
	); err != nil {
		return nil, err
	}

	session.ClientID = clientID.String
	session.SessionType = sessionType.String
	session.Notes = notes.String
	session.Summary = summary.String
	session.Outcome = outcome.String

	if psychologyJSON.Valid && psychologyJSON.String != "" {
		session.CumulativePsychology = &psychology.Profile{}
		if err := json.Unmarshal([]byte(psychologyJSON.String), session.CumulativePsychology); err != nil {
			return nil, fmt.Errorf("failed to decode psychology blob: %w", err)
		}
	}
	if err := unmarshalBlob(questionsJSON, &session.ActiveClarifyingQueries); err != nil {
		return nil, fmt.Errorf("failed to decode clarifying questions: %w", err)
	}
	if err := unmarshalBlobPtr(archetypeJSON, &session.CustomerArchetype); err != nil {
		return nil, fmt.Errorf("failed to decode archetype blob: %w", err)
	}
	if err := unmarshalBlobPtr(holisticJSON, &session.HolisticProfile); err != nil {
		return nil, fmt.Errorf("failed to decode holistic blob: %w", err)
	}
	if err := unmarshalBlobPtr(indicatorsJSON, &session.SalesIndicators); err != nil {
		return nil, fmt.Errorf("failed to decode indicators blob: %w", err)
	}

	if psychologyUpdatedAt.Valid {
		t := psychologyUpdatedAt.Time
		session.PsychologyUpdatedAt = &t
	}
	if endTS.Valid {
		t := endTS.Time
		session.EndTS = &t
	}

	return &session, nil
}

func scanInteraction(row rowScanner) (*Interaction, error) {
	var interaction Interaction
	var responseJSON, feedbackJSON, parentID sql.NullString

	if err := row.Scan(&interaction.ID, &interaction.SessionID, &interaction.TS,
		&interaction.UserInput, &responseJSON, &feedbackJSON, &parentID); err != nil {
		return nil, err
	}

	if err := unmarshalBlobPtr(responseJSON, &interaction.AIResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response blob: %w", err)
	}
	if err := unmarshalBlob(feedbackJSON, &interaction.Feedback); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	interaction.ParentInteractionID = parentID.String

	return &interaction, nil
}

func collectInteractions(rows *sql.Rows) ([]Interaction, error) {
	var interactions []Interaction
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, *interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}
	return interactions, nil
}

// ---------------------------------------------------------------------------
// Blob helpers

// marshalBlob turns a value into a TEXT column value; nil pointers and nil
// slices become SQL NULL.
func marshalBlob(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return nil
	}
	return string(data)
}

func unmarshalBlob(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

// unmarshalBlobPtr allocates **T targets only when the column holds data.
func unmarshalBlobPtr[T any](src sql.NullString, dst **T) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	var value T
	if err := json.Unmarshal([]byte(src.String), &value); err != nil {
		return err
	}
	*dst = &value
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	return page, size
}
