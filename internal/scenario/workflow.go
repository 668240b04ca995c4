// Package scenario runs multi-step checks against a Notes API deployment:
// the end-to-end user and note workflow, and the smoke suite.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/notesprobe/pkg/apiclient"
	"github.com/notesprobe/pkg/notes"
)

// ErrFailed is wrapped by the error of a run with at least one failed step.
var ErrFailed = errors.New("scenario failed")

// Workflow step names, in execution order.
const (
	StepRegister = "register"
	StepLogin    = "login"
	StepCreate   = "create note"
	StepUpdate   = "update note"
	StepDelete   = "delete note"
)

// RunWorkflow registers user, logs in, then creates, updates and deletes
// note. The note id returned by the create step is reused verbatim for the
// update and delete calls. The first failing step ends the run.
func RunWorkflow(ctx context.Context, svc *notes.Service, user notes.RegisterRequest, note notes.NoteRequest) (*Report, error) {
	report := newReport("workflow", svc.Client().BaseURL())
	defer report.finish()

	var noteID string

	steps := []struct {
		name string
		run  func() (int, string, error)
	}{
		{StepRegister, func() (int, string, error) {
			res, err := svc.Register(ctx, user)
			if err != nil {
				return apiclient.StatusCode(err), "", err
			}
			if res.StatusCode != http.StatusCreated || !res.Success {
				return res.StatusCode, res.Message, fmt.Errorf("expected 201 with success, got %d", res.StatusCode)
			}
			return res.StatusCode, res.Message, nil
		}},
		{StepLogin, func() (int, string, error) {
			res, err := svc.Login(ctx, user.Email, user.Password)
			if err != nil {
				return apiclient.StatusCode(err), "", err
			}
			if res.Data.Token == "" || !svc.Client().Authenticated() {
				return res.StatusCode, res.Message, errors.New("login response carried no token")
			}
			return res.StatusCode, res.Message, nil
		}},
		{StepCreate, func() (int, string, error) {
			res, err := svc.CreateNote(ctx, note)
			if err != nil {
				return apiclient.StatusCode(err), "", err
			}
			if res.StatusCode != http.StatusOK || !res.Success {
				return res.StatusCode, res.Message, fmt.Errorf("expected 200 with success, got %d", res.StatusCode)
			}
			if res.Data.ID == "" {
				return res.StatusCode, res.Message, errors.New("created note has no id")
			}
			noteID = res.Data.ID
			return res.StatusCode, "id " + noteID, nil
		}},
		{StepUpdate, func() (int, string, error) {
			update := notes.NoteRequest{
				Title:       "Updated " + note.Title,
				Description: note.Description,
				Category:    notes.CategoryPersonal,
				Completed:   true,
			}
			res, err := svc.UpdateNote(ctx, noteID, update)
			if err != nil {
				return apiclient.StatusCode(err), "", err
			}
			if res.StatusCode != http.StatusOK || !res.Success {
				return res.StatusCode, res.Message, fmt.Errorf("expected 200 with success, got %d", res.StatusCode)
			}
			if !res.Data.Completed || res.Data.Category != notes.CategoryPersonal {
				return res.StatusCode, res.Message, errors.New("update was not applied")
			}
			return res.StatusCode, res.Message, nil
		}},
		{StepDelete, func() (int, string, error) {
			res, err := svc.DeleteNote(ctx, noteID)
			if err != nil {
				return apiclient.StatusCode(err), "", err
			}
			if res.StatusCode != http.StatusOK || !res.Success {
				return res.StatusCode, res.Message, fmt.Errorf("expected 200 with success, got %d", res.StatusCode)
			}
			return res.StatusCode, res.Message, nil
		}},
	}

	for _, step := range steps {
		start := time.Now()
		status, detail, err := step.run()
		s := Step{
			Name:       step.name,
			Passed:     err == nil,
			StatusCode: status,
			Elapsed:    time.Since(start),
			Detail:     detail,
		}
		if err != nil {
			s.Error = err.Error()
			report.add(s)
			return report, fmt.Errorf("%w: %s: %w", ErrFailed, step.name, err)
		}
		report.add(s)
	}

	return report, nil
}
