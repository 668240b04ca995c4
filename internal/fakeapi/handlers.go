package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notesprobe/pkg/apiclient"
	"github.com/notesprobe/pkg/notes"
)

const (
	msgHealthy       = "Notes API is Running"
	msgRegistered    = "User account created successfully"
	msgDuplicate     = "An account already exists with the same email address"
	msgLoggedIn      = "Login successful"
	msgBadLogin      = "Incorrect email address or password"
	msgProfile       = "Profile successful"
	msgLoggedOut     = "User has been successfully logged out"
	msgUnauthorized  = "Access token is not valid or has expired, you will need to login"
	msgNoteCreated   = "Note successfully created"
	msgNotesListed   = "Notes successfully retrieved"
	msgNoteFound     = "Note successfully retrieved"
	msgNoteUpdated   = "Note successfully Updated"
	msgNoteDeleted   = "Note successfully deleted"
	msgNoteNotFound  = "No note was found with the provided ID, Maybe it was deleted"
	msgBadNoteID     = "Note ID must be a valid ID"
	msgBadCompletion = "Note completed status must be boolean"
	msgBadBody       = "Request body could not be parsed"
)

type ctxKey struct{}

type session struct {
	user  notes.User
	token string
}

func sessionFrom(ctx context.Context) session {
	sess, _ := ctx.Value(ctxKey{}).(session)
	return sess
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(apiclient.AuthHeader)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "No authentication token specified in x-auth-token header")
			return
		}
		user, ok := s.store.authenticate(token)
		if !ok {
			respondError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, session{user: user, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, msgHealthy, nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, ok := readFields(w, r)
	if !ok {
		return
	}
	req := notes.RegisterRequest{
		Name:     in.str("name"),
		Email:    in.str("email"),
		Password: in.str("password"),
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, notes.ValidationMessage(err))
		return
	}

	user, err := s.store.register(req)
	switch {
	case errors.Is(err, errDuplicateEmail):
		respondError(w, http.StatusConflict, msgDuplicate)
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("register failed")
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respond(w, http.StatusCreated, msgRegistered, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, ok := readFields(w, r)
	if !ok {
		return
	}
	req := notes.LoginRequest{
		Email:    in.str("email"),
		Password: in.str("password"),
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, notes.ValidationMessage(err))
		return
	}

	data, err := s.store.login(req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, msgBadLogin)
		return
	}
	respond(w, http.StatusOK, msgLoggedIn, data)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, msgProfile, sessionFrom(r.Context()).user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.logout(sessionFrom(r.Context()).token)
	respond(w, http.StatusOK, msgLoggedOut, nil)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := readNote(w, r)
	if !ok {
		return
	}
	note := s.store.createNote(sessionFrom(r.Context()).user.ID, req)
	respond(w, http.StatusOK, msgNoteCreated, note)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, msgNotesListed, s.store.listNotes(sessionFrom(r.Context()).user.ID))
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	note, err := s.store.note(sessionFrom(r.Context()).user.ID, id)
	if err != nil {
		respondError(w, http.StatusNotFound, msgNoteNotFound)
		return
	}
	respond(w, http.StatusOK, msgNoteFound, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	req, ok := readNote(w, r)
	if !ok {
		return
	}
	note, err := s.store.updateNote(sessionFrom(r.Context()).user.ID, id, func(n *notes.Note) {
		n.Title = req.Title
		n.Description = req.Description
		n.Category = req.Category
		n.Completed = req.Completed
	})
	if err != nil {
		respondError(w, http.StatusNotFound, msgNoteNotFound)
		return
	}
	respond(w, http.StatusOK, msgNoteUpdated, note)
}

func (s *Server) handlePatchNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	in, ok := readFields(w, r)
	if !ok {
		return
	}
	completed, err := in.boolean("completed")
	if err != nil {
		respondError(w, http.StatusBadRequest, msgBadCompletion)
		return
	}
	note, err := s.store.updateNote(sessionFrom(r.Context()).user.ID, id, func(n *notes.Note) {
		n.Completed = completed
	})
	if err != nil {
		respondError(w, http.StatusNotFound, msgNoteNotFound)
		return
	}
	respond(w, http.StatusOK, msgNoteUpdated, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	if err := s.store.deleteNote(sessionFrom(r.Context()).user.ID, id); err != nil {
		respondError(w, http.StatusNotFound, msgNoteNotFound)
		return
	}
	respond(w, http.StatusOK, msgNoteDeleted, nil)
}

func noteID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, msgBadNoteID)
		return "", false
	}
	return id, true
}

func readNote(w http.ResponseWriter, r *http.Request) (notes.NoteRequest, bool) {
	in, ok := readFields(w, r)
	if !ok {
		return notes.NoteRequest{}, false
	}
	req := notes.NoteRequest{
		Title:       in.str("title"),
		Description: in.str("description"),
		Category:    notes.Category(in.str("category")),
	}
	if _, present := in["completed"]; present {
		completed, err := in.boolean("completed")
		if err != nil {
			respondError(w, http.StatusBadRequest, msgBadCompletion)
			return notes.NoteRequest{}, false
		}
		req.Completed = completed
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, notes.ValidationMessage(err))
		return notes.NoteRequest{}, false
	}
	return req, true
}

// fields is a request body flattened from either JSON or a form.
type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) boolean(key string) (bool, error) {
	switch v := f[key].(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("%s is not a boolean", key)
	}
}

// readFields decodes a JSON or form body, answering 400 when it cannot.
func readFields(w http.ResponseWriter, r *http.Request) (fields, bool) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		out := fields{}
		if err := json.NewDecoder(r.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, msgBadBody)
			return nil, false
		}
		return out, true
	}

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, msgBadBody)
		return nil, false
	}
	out := make(fields, len(r.PostForm))
	for k, vs := range r.PostForm {
		out[k] = strings.Join(vs, ",")
	}
	return out, true
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	body := map[string]any{
		"success": status < 400,
		"status":  status,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, message, nil)
}
