package fakeapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/notesprobe/pkg/notes"
)

var (
	errDuplicateEmail = errors.New("duplicate email")
	errBadCredentials = errors.New("bad credentials")
	errNoteNotFound   = errors.New("note not found")
)

type account struct {
	user notes.User
	hash []byte
}

// Store is an in-memory data store.
type Store struct {
	mu       sync.RWMutex
	cost     int
	byEmail  map[string]*account
	byID     map[string]*account
	sessions map[string]string
	notes    map[string]*notes.Note
	now      func() time.Time
}

// NewStore creates an empty store hashing passwords at the given bcrypt cost.
func NewStore(cost int) *Store {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	return &Store{
		cost:     cost,
		byEmail:  make(map[string]*account),
		byID:     make(map[string]*account),
		sessions: make(map[string]string),
		notes:    make(map[string]*notes.Note),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) register(req notes.RegisterRequest) (notes.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return notes.User{}, err
	}

	email := strings.ToLower(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return notes.User{}, errDuplicateEmail
	}
	acct := &account{
		user: notes.User{ID: uuid.NewString(), Name: req.Name, Email: email},
		hash: hash,
	}
	s.byEmail[email] = acct
	s.byID[acct.user.ID] = acct
	return acct.user, nil
}

func (s *Store) login(email, password string) (notes.LoginData, error) {
	s.mu.RLock()
	acct, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return notes.LoginData{}, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return notes.LoginData{}, errBadCredentials
	}

	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")

	s.mu.Lock()
	s.sessions[token] = acct.user.ID
	s.mu.Unlock()

	return notes.LoginData{
		ID:    acct.user.ID,
		Name:  acct.user.Name,
		Email: acct.user.Email,
		Token: token,
	}, nil
}

func (s *Store) authenticate(token string) (notes.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.sessions[token]
	if !ok {
		return notes.User{}, false
	}
	acct, ok := s.byID[id]
	if !ok {
		return notes.User{}, false
	}
	return acct.user, true
}

func (s *Store) logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Store) createNote(userID string, req notes.NoteRequest) notes.Note {
	now := s.now()
	n := &notes.Note{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Completed:   req.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
		UserID:      userID,
	}

	s.mu.Lock()
	s.notes[n.ID] = n
	s.mu.Unlock()
	return *n
}

func (s *Store) listNotes(userID string) []notes.Note {
	s.mu.RLock()
	out := make([]notes.Note, 0)
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) note(userID, id string) (notes.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return notes.Note{}, errNoteNotFound
	}
	return *n, nil
}

// updateNote applies fn to a copy of the note and stores the result.
func (s *Store) updateNote(userID, id string, fn func(*notes.Note)) (notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return notes.Note{}, errNoteNotFound
	}
	updated := *n
	fn(&updated)
	updated.UpdatedAt = s.now()
	s.notes[id] = &updated
	return updated, nil
}

func (s *Store) deleteNote(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.UserID != userID {
		return errNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

// Stats reports the number of accounts, live sessions and notes.
func (s *Store) Stats() (users, sessions, notesCount int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), len(s.sessions), len(s.notes)
}
