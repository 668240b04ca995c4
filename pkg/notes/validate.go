package notes

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Messages the Notes API returns for invalid fields, keyed by struct field.
var fieldMessages = map[string]string{
	"Name":        "User name must be between 4 and 30 characters",
	"Email":       "A valid email address is required",
	"Password":    "Password must be between 6 and 30 characters",
	"Title":       "Title must be between 4 and 100 characters",
	"Description": "Description must be between 4 and 1000 characters",
	"Category":    "Category must be one of the categories: Home, Work, Personal",
}

// Validate checks the registration fields.
func (r RegisterRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks the login fields.
func (r LoginRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks the note fields.
func (n NoteRequest) Validate() error {
	return validate.Struct(n)
}

// ValidationMessage turns a validation error into the message the API
// would answer with for the first offending field. Other errors are
// returned as their Error text.
func ValidationMessage(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if msg, ok := fieldMessages[fe.StructField()]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
}
