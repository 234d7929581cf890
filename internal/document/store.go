// Package document persists every user and task as one JSON array in a single file.
//
// The whole collection is read and rewritten on each mutation. Store serializes
// load-mutate-save cycles behind one mutex, so concurrent requests cannot lose
// each other's writes, and every read or write failure is returned to the caller.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/yukikurage/taskpick-api/internal/models"
)

// ErrPersistence wraps every failure to read, decode, encode or write the document.
var ErrPersistence = errors.New("document: persistence failure")

// bootstrapContent is written when the backing file does not exist yet.
const bootstrapContent = "[{}]"

// UserRecord is the on-disk shape of a user, including the password hash and tasks.
type UserRecord struct {
	ID              string        `json:"id,omitempty"`
	Email           string        `json:"email,omitempty"`
	Password        string        `json:"password,omitempty"`
	Name            string        `json:"name,omitempty"`
	IsMegaUser      bool          `json:"isMegaUser"`
	AssistantOn     bool          `json:"assistantOn"`
	AccessRequested bool          `json:"accessRequested,omitempty"`
	Tasks           []models.Task `json:"tasks"`
}

// Document is the ordered collection of users.
type Document []UserRecord

// FindUser returns the index of the user with id, or -1. Records without an id never match.
func (d Document) FindUser(id string) int {
	if id == "" {
		return -1
	}
	for i := range d {
		if d[i].ID == id {
			return i
		}
	}
	return -1
}

// FindEmail returns the index of the user with email, or -1.
func (d Document) FindEmail(email string) int {
	if email == "" {
		return -1
	}
	for i := range d {
		if d[i].ID != "" && d[i].Email == email {
			return i
		}
	}
	return -1
}

// ToUser converts the record to a model, leaving tasks out.
func (r UserRecord) ToUser() models.User {
	return models.User{
		ID:              r.ID,
		Email:           r.Email,
		PasswordHash:    r.Password,
		Name:            r.Name,
		IsMegaUser:      r.IsMegaUser,
		AssistantOn:     r.AssistantOn,
		AccessRequested: r.AccessRequested,
	}
}

// ApplyUser copies the model's profile fields onto the record.
func (r *UserRecord) ApplyUser(u models.User) {
	r.ID = u.ID
	r.Email = u.Email
	r.Password = u.PasswordHash
	r.Name = u.Name
	r.IsMegaUser = u.IsMegaUser
	r.AssistantOn = u.AssistantOn
	r.AccessRequested = u.AccessRequested
}

// Store reads and writes a Document at a fixed path.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store for path, creating the file with the bootstrap document if absent.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the full collection.
func (s *Store) Load(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save overwrites the backing file with doc.
func (s *Store) Save(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

// View runs fn against a freshly loaded document without persisting.
func (s *Store) View(ctx context.Context, fn func(doc Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update loads the document, lets fn mutate it and saves the result, all under one lock.
// When fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *Store) bootstrap() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", ErrPersistence, s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: create dir %s: %v", ErrPersistence, dir, err)
		}
	}
	if err := os.WriteFile(s.path, []byte(bootstrapContent), 0o600); err != nil {
		return fmt.Errorf("%w: bootstrap %s: %v", ErrPersistence, s.path, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.bootstrap(); err != nil {
			return nil, err
		}
		data = []byte(bootstrapContent)
	} else if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, s.path, err)
	}
	for i := range doc {
		for j := range doc[i].Tasks {
			doc[i].Tasks[j].UserID = doc[i].ID
			doc[i].Tasks[j].Position = int64(j + 1)
		}
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		doc = Document{}
	}
	for i := range doc {
		if doc[i].Tasks == nil {
			doc[i].Tasks = []models.Task{}
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %v", ErrPersistence, s.path, err)
	}
	return nil
}
