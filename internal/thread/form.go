package thread

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Messages shown on a form.
const (
	SubmitFailedMessage = "Submission failed, please try again."
	GuestNameMessage    = "Please enter a guest name."
	BodyMessage         = "Please enter a comment."
	DepthMessage        = "Replies are not allowed this deep in the thread."
)

// Form is one comment box: the top-level box (ParentID 0) or a reply box.
type Form struct {
	ParentID    int64        `json:"parent_id"`
	Body        string       `json:"body"`
	GuestName   string       `json:"guest_name"`
	Pending     bool         `json:"pending"`
	Error       string       `json:"error,omitempty"`
	FieldErrors []FieldError `json:"field_errors,omitempty"`
}

// Draft is what the user typed into a form.
type Draft struct {
	ParentID  int64  `json:"parent_id"`
	Body      string `json:"body"`
	GuestName string `json:"guest_name"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists the fields that block a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "invalid comment: " + strings.Join(lo.Map(e.Fields, func(f FieldError, _ int) string {
		return f.Field
	}), ", ")
}

// submission is the trimmed payload checked before anything is sent.
// Guest name comes first so it is reported first.
type submission struct {
	Authenticated bool
	GuestName     string `json:"guest_name" validate:"required_unless=Authenticated true"`
	Body          string `json:"body" validate:"required"`
}

var formValidate *validator.Validate

func init() {
	formValidate = validator.New()
	formValidate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

var fieldMessages = map[string]string{
	"guest_name": GuestNameMessage,
	"body":       BodyMessage,
}

// validate trims the draft and checks it against the identity.
func validate(d Draft, authenticated bool) (submission, *ValidationError) {
	sub := submission{
		Authenticated: authenticated,
		GuestName:     strings.TrimSpace(d.GuestName),
		Body:          strings.TrimSpace(d.Body),
	}
	if authenticated {
		sub.GuestName = ""
	}

	var fields []FieldError
	if err := formValidate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return sub, &ValidationError{Fields: []FieldError{{Field: "body", Message: BodyMessage}}}
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessages[fe.Field()]})
		}
	}
	if len(fields) > 0 {
		return sub, &ValidationError{Fields: fields}
	}
	return sub, nil
}
