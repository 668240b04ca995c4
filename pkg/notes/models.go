// Package notes provides typed access to the Notes API on top of apiclient.
package notes

import (
	"time"
)

// Envelope is the wrapper the Notes API puts around every response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// Category classifies a note.
type Category string

const (
	CategoryHome     Category = "Home"
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
)

// Categories lists every category the API accepts.
var Categories = []Category{CategoryHome, CategoryWork, CategoryPersonal}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// User is the profile of an account.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=4,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=30"`
}

func (r RegisterRequest) form() map[string]any {
	return map[string]any{
		"name":     r.Name,
		"email":    r.Email,
		"password": r.Password,
	}
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=30"`
}

// LoginData is the payload of a successful login.
type LoginData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// NoteRequest creates or replaces a note.
type NoteRequest struct {
	Title       string   `json:"title" validate:"required,min=4,max=100"`
	Description string   `json:"description" validate:"required,min=4,max=1000"`
	Category    Category `json:"category" validate:"required,oneof=Home Work Personal"`
	Completed   bool     `json:"completed"`
}

func (n NoteRequest) body() map[string]any {
	return map[string]any{
		"title":       n.Title,
		"description": n.Description,
		"category":    string(n.Category),
		"completed":   n.Completed,
	}
}

// Note is a stored note.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      string    `json:"user_id"`
}

// Health is the envelope returned by /health-check. It carries no data.
type Health = Envelope[struct{}]
