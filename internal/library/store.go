package library

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	macroerrors "macroreel/internal/errors"
	"macroreel/internal/macro"
)

// Macro is a named, stored event sequence. List leaves Events nil.
type Macro struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Events     []macro.InputEvent `json:"events,omitempty"`
	EventCount int                `json:"event_count"`
	DurationMS uint64             `json:"duration_ms"`
	CreatedAt  int64              `json:"created_at"`
	UpdatedAt  int64              `json:"updated_at"`
}

// Store is the macro library.
type Store struct {
	db *sql.DB
}

// Open opens or creates the library in baseDir.
func Open(baseDir string) (*Store, error) {
	db, err := openDB(baseDir)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// newID returns a ULID from the process-wide monotonic source, so ids
// minted in the same millisecond still sort in creation order.
func newID() string {
	return ulid.Make().String()
}

// Save stores events under name and returns the new macro.
func (s *Store) Save(name string, events []macro.InputEvent) (*Macro, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, macroerrors.NewInvalidRequest("macro name is required")
	}
	if len(events) == 0 {
		return nil, macroerrors.NewEmptyMacro()
	}
	if err := macro.Validate(events); err != nil {
		return nil, macroerrors.NewInvalidRequest(err.Error())
	}

	data, err := json.Marshal(events)
	if err != nil {
		return nil, macroerrors.NewInternal(err)
	}

	now := time.Now().Unix()
	m := &Macro{
		ID:         newID(),
		Name:       name,
		Events:     macro.Clone(events),
		EventCount: len(events),
		DurationMS: macro.Duration(events),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = s.db.Exec(`
		INSERT INTO macros (id, name, events_json, event_count, duration_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(data), m.EventCount, m.DurationMS, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, macroerrors.NewNameAlreadyExists(name)
		}
		return nil, macroerrors.NewInternal(err)
	}
	return m, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const selectColumns = `SELECT id, name, events_json, event_count, duration_ms, created_at, updated_at FROM macros`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMacro(row rowScanner) (*Macro, error) {
	var m Macro
	var eventsJSON string
	if err := row.Scan(&m.ID, &m.Name, &eventsJSON, &m.EventCount, &m.DurationMS, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(eventsJSON), &m.Events); err != nil {
		return nil, fmt.Errorf("decode events of %s: %w", m.ID, err)
	}
	return &m, nil
}

// Get returns the macro with the given id.
func (s *Store) Get(id string) (*Macro, error) {
	m, err := scanMacro(s.db.QueryRow(selectColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, macroerrors.NewNotFound(id)
	}
	if err != nil {
		return nil, macroerrors.NewInternal(err)
	}
	return m, nil
}

// GetByName returns the macro with the given name.
func (s *Store) GetByName(name string) (*Macro, error) {
	name = strings.TrimSpace(name)
	m, err := scanMacro(s.db.QueryRow(selectColumns+` WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, macroerrors.NewNotFound(name)
	}
	if err != nil {
		return nil, macroerrors.NewInternal(err)
	}
	return m, nil
}

// Resolve looks ref up as an id first, then as a name.
func (s *Store) Resolve(ref string) (*Macro, error) {
	m, err := s.Get(ref)
	if err == nil || !macroerrors.Is(err, macroerrors.ErrNotFound) {
		return m, err
	}
	return s.GetByName(ref)
}

// List returns every macro without its events, newest first.
func (s *Store) List() ([]Macro, error) {
	rows, err := s.db.Query(`
		SELECT id, name, event_count, duration_ms, created_at, updated_at
		FROM macros
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, macroerrors.NewInternal(err)
	}
	defer rows.Close()

	out := []Macro{}
	for rows.Next() {
		var m Macro
		if err := rows.Scan(&m.ID, &m.Name, &m.EventCount, &m.DurationMS, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, macroerrors.NewInternal(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, macroerrors.NewInternal(err)
	}
	return out, nil
}

// Delete removes the macro with the given id.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM macros WHERE id = ?`, id)
	if err != nil {
		return macroerrors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return macroerrors.NewInternal(err)
	}
	if n == 0 {
		return macroerrors.NewNotFound(id)
	}
	return nil
}

// Export writes the events of macro id to w as an indented JSON array.
func (s *Store) Export(id string, w io.Writer) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Events); err != nil {
		return macroerrors.NewInternal(err)
	}
	return nil
}

// Import reads a JSON event array from r and saves it under name.
func (s *Store) Import(r io.Reader, name string) (*Macro, error) {
	var events []macro.InputEvent
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, macroerrors.NewInvalidRequest(fmt.Sprintf("invalid event file: %v", err))
	}
	return s.Save(name, events)
}
