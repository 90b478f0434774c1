package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("history record not found")

// Transcription is one stored transcription outcome. Records are
// append-only and never mutated after the insert.
type Transcription struct {
	ID         int64
	Owner      string
	Source     string
	SourceURL  string
	Title      string
	Transcript string
	Segments   *string
	CreatedAt  time.Time
}

// Content is one stored content-generation outcome, referencing the
// transcription it was derived from.
type Content struct {
	ID                 int64
	Owner              string
	TranscriptionID    int64
	TranscriptionTitle string
	Title              string
	Generated          string
	Config             string
	CreatedAt          time.Time
}

// Store persists transcription and content-generation history in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the history database and ensures the schema exists.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcription_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		source TEXT NOT NULL,
		source_url TEXT,
		title TEXT,
		transcript TEXT NOT NULL,
		segments TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_generation (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		transcription_id INTEGER NOT NULL,
		title TEXT,
		generated_content TEXT NOT NULL,
		config TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (transcription_id) REFERENCES transcription_history(id)
	);

	CREATE INDEX IF NOT EXISTS idx_history_owner ON transcription_history(owner, created_at);
	CREATE INDEX IF NOT EXISTS idx_content_owner ON content_generation(owner, created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history tables: %v", err)
	}

	return &Store{db: db}, nil
}

// SaveTranscription appends one transcription record and returns its id.
func (s *Store) SaveTranscription(owner, source, sourceURL, title, transcript string, segments *string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO transcription_history (owner, source, source_url, title, transcript, segments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		owner, source, sourceURL, title, transcript, segments, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save transcription record: %v", err)
	}
	return res.LastInsertId()
}

// GetTranscription retrieves one transcription record by id.
func (s *Store) GetTranscription(id int64) (*Transcription, error) {
	row := s.db.QueryRow(
		`SELECT id, owner, source, source_url, title, transcript, segments, created_at
		 FROM transcription_history WHERE id = ?`, id)

	var (
		rec      Transcription
		url      sql.NullString
		title    sql.NullString
		segments sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Owner, &rec.Source, &url, &title, &rec.Transcript, &segments, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription record: %v", err)
	}

	rec.SourceURL = url.String
	rec.Title = title.String
	if segments.Valid {
		rec.Segments = &segments.String
	}
	return &rec, nil
}

// ListTranscriptions returns the owner's transcription records, newest
// first.
func (s *Store) ListTranscriptions(owner string) ([]*Transcription, error) {
	rows, err := s.db.Query(
		`SELECT id, owner, source, source_url, title, transcript, segments, created_at
		 FROM transcription_history WHERE owner = ? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcription records: %v", err)
	}
	defer rows.Close()

	var records []*Transcription
	for rows.Next() {
		var (
			rec      Transcription
			url      sql.NullString
			title    sql.NullString
			segments sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Source, &url, &title, &rec.Transcript, &segments, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcription record: %v", err)
		}
		rec.SourceURL = url.String
		rec.Title = title.String
		if segments.Valid {
			seg := segments.String
			rec.Segments = &seg
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// SaveContent appends one content-generation record and returns its id.
func (s *Store) SaveContent(owner string, transcriptionID int64, title, generated, config string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO content_generation (owner, transcription_id, title, generated_content, config, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		owner, transcriptionID, title, generated, config, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save content record: %v", err)
	}
	return res.LastInsertId()
}

// ListContent returns the owner's generated-content records, newest first,
// joined with the source transcription title.
func (s *Store) ListContent(owner string) ([]*Content, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.owner, c.transcription_id, COALESCE(t.title, ''), c.title,
		        c.generated_content, c.config, c.created_at
		 FROM content_generation c
		 LEFT JOIN transcription_history t ON t.id = c.transcription_id
		 WHERE c.owner = ? ORDER BY c.created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list content records: %v", err)
	}
	defer rows.Close()

	var records []*Content
	for rows.Next() {
		var (
			rec    Content
			title  sql.NullString
			config sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.TranscriptionID, &rec.TranscriptionTitle,
			&title, &rec.Generated, &config, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content record: %v", err)
		}
		rec.Title = title.String
		rec.Config = config.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
