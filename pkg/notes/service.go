package notes

import (
	"context"
	"time"

	"github.com/notesprobe/pkg/apiclient"
)

// Response is a decoded envelope plus the HTTP facts around it.
type Response[T any] struct {
	Envelope[T]
	StatusCode int
	Elapsed    time.Duration
}

// Service calls the Notes API endpoints through one apiclient.Client.
// It shares the client's auth state and is likewise not safe for
// concurrent use.
type Service struct {
	client *apiclient.Client
}

// NewService wraps client.
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Client returns the underlying API client.
func (s *Service) Client() *apiclient.Client {
	return s.client
}

// Health calls GET /health-check.
func (s *Service) Health(ctx context.Context, opts ...apiclient.RequestOption) (*Response[struct{}], error) {
	return decode[struct{}](s.client.HealthCheck(ctx, opts...))
}

// Register creates an account. The body is sent as a form, as the API's
// own web client does.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Response[User], error) {
	return decode[User](s.client.Post(ctx, "/users/register", req.form(), apiclient.AsForm()))
}

// Login authenticates and, on success, leaves the token on the client.
func (s *Service) Login(ctx context.Context, email, password string) (*Response[LoginData], error) {
	res, _, err := s.client.Authenticate(ctx, email, password)
	return decode[LoginData](res, err)
}

// Profile returns the authenticated user's profile.
func (s *Service) Profile(ctx context.Context) (*Response[User], error) {
	return decode[User](s.client.Get(ctx, "/users/profile"))
}

// Logout invalidates the current token and forgets it locally.
func (s *Service) Logout(ctx context.Context) (*Response[struct{}], error) {
	resp, err := decode[struct{}](s.client.Delete(ctx, "/users/logout"))
	if err != nil {
		return nil, err
	}
	s.client.Token = ""
	return resp, nil
}

// CreateNote stores a new note.
func (s *Service) CreateNote(ctx context.Context, req NoteRequest) (*Response[Note], error) {
	return decode[Note](s.client.Post(ctx, "/notes", req.body()))
}

// ListNotes returns every note of the authenticated user.
func (s *Service) ListNotes(ctx context.Context) (*Response[[]Note], error) {
	return decode[[]Note](s.client.Get(ctx, "/notes"))
}

// GetNote fetches one note.
func (s *Service) GetNote(ctx context.Context, id string) (*Response[Note], error) {
	return decode[Note](s.client.Get(ctx, "/notes/"+id))
}

// UpdateNote replaces every field of a note.
func (s *Service) UpdateNote(ctx context.Context, id string, req NoteRequest) (*Response[Note], error) {
	return decode[Note](s.client.Put(ctx, "/notes/"+id, req.body()))
}

// SetCompleted flips only the completed flag of a note.
func (s *Service) SetCompleted(ctx context.Context, id string, completed bool) (*Response[Note], error) {
	return decode[Note](s.client.Patch(ctx, "/notes/"+id, map[string]any{"completed": completed}))
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) (*Response[struct{}], error) {
	return decode[struct{}](s.client.Delete(ctx, "/notes/"+id))
}

func decode[T any](res *apiclient.Result, err error) (*Response[T], error) {
	if err != nil {
		return nil, err
	}
	out := &Response[T]{StatusCode: res.StatusCode, Elapsed: res.Elapsed}
	if len(res.Body) == 0 {
		return out, nil
	}
	if err := res.Decode(&out.Envelope); err != nil {
		return nil, &apiclient.Error{
			Message:    err.Error(),
			StatusCode: res.StatusCode,
			Response:   res.Text(),
			Err:        err,
		}
	}
	return out, nil
}
