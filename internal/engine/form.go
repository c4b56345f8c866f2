package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

const msgRequired = "This field is required."

// FormField is one input of a constrained form.
type FormField struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Type      string            `json:"type"`
	Required  bool              `json:"required"`
	Readonly  bool              `json:"readonly"`
	MaxLength int               `json:"max_length,omitempty"`
	Choices   []metadata.Choice `json:"choices,omitempty"`
	Value     string            `json:"value"`
	Error     string            `json:"error,omitempty"`
}

// Form is an add/change form restricted to a configuration's form fields.
type Form struct {
	Fields         []*FormField `json:"fields"`
	NonFieldErrors []string     `json:"non_field_errors,omitempty"`

	entity  *metadata.Entity
	cfg     *frontend.EntityConfig
	cleaned store.Row
	bound   bool
	adding  bool
}

// BuildForm builds an unbound form over cfg.FormFields with initial values
// taken from initial (nil for an add form). The field set is exactly the
// allow-list: an empty allow-list yields a form with no fields.
func BuildForm(cfg *frontend.EntityConfig, initial store.Row, log logrus.FieldLogger) *Form {
	entity := cfg.Entity
	form := &Form{Fields: []*FormField{}, entity: entity, cfg: cfg, adding: initial == nil}
	if len(cfg.FormFields) == 0 {
		log.WithField("entity", entity.Key()).Debug("form has no fields because form_fields is empty")
		return form
	}
	for _, name := range cfg.FormFields {
		f := entity.GetField(name)
		if f == nil || name == entity.ID() {
			log.WithFields(logrus.Fields{"entity": entity.Key(), "field": name}).Warn("form field is not editable, skipping")
			continue
		}
		v, ok := initial[name]
		if !ok && initial == nil {
			v = f.Default
		}
		form.Fields = append(form.Fields, &FormField{
			Name:      f.Name,
			Label:     f.VerboseName(),
			Type:      inputType(f),
			Required:  f.Required,
			Readonly:  contains(cfg.ReadonlyFields, name),
			MaxLength: f.MaxLength,
			Choices:   f.Choices,
			Value:     formatValue(f, v),
		})
	}
	return form
}

// Bind validates submitted values. Readonly fields ignore submissions and
// keep their initial value; on an add form that is the field default, and a
// required readonly field without one is an error. It reports whether the
// form is valid.
func (f *Form) Bind(values map[string]string) bool {
	f.bound = true
	f.cleaned = make(store.Row, len(f.Fields))
	for _, ff := range f.Fields {
		field := f.entity.GetField(ff.Name)
		if ff.Readonly {
			if f.adding {
				switch {
				case field.Default != nil:
					f.cleaned[ff.Name] = field.Default
				case field.Required:
					ff.Error = msgRequired
				}
			}
			continue
		}
		raw, present := values[ff.Name]
		if field.Type == "boolean" {
			ff.Value = strconv.FormatBool(present && isTruthy(raw))
		} else {
			ff.Value = raw
		}
		v, msg := cleanValue(field, raw, present)
		if msg != "" {
			ff.Error = msg
			continue
		}
		f.cleaned[ff.Name] = v
	}

	for _, ff := range f.Fields {
		if ff.Readonly || ff.Error != "" {
			continue
		}
		for _, v := range f.cfg.Validators(ff.Name) {
			ok, err := v.Check(f.cleaned[ff.Name], f.cleaned)
			if err != nil || !ok {
				ff.Error = v.Message
				delete(f.cleaned, ff.Name)
				break
			}
		}
	}
	return f.Valid()
}

// AddError records a form-wide error, making the form invalid.
func (f *Form) AddError(msg string) {
	f.NonFieldErrors = append(f.NonFieldErrors, msg)
}

// Valid reports whether the form was bound and carries no errors.
func (f *Form) Valid() bool {
	if !f.bound || len(f.NonFieldErrors) > 0 {
		return false
	}
	for _, ff := range f.Fields {
		if ff.Error != "" {
			return false
		}
	}
	return true
}

// Cleaned returns the coerced values of the editable fields.
func (f *Form) Cleaned() store.Row {
	out := make(store.Row, len(f.cleaned))
	for k, v := range f.cleaned {
		out[k] = v
	}
	return out
}

// Details lists the validation errors of a bound form.
func (f *Form) Details() []ErrorDetail {
	var out []ErrorDetail
	for _, ff := range f.Fields {
		if ff.Error != "" {
			out = append(out, ErrorDetail{Field: ff.Name, Message: ff.Error})
		}
	}
	for _, msg := range f.NonFieldErrors {
		out = append(out, ErrorDetail{Message: msg})
	}
	return out
}

func cleanValue(f *metadata.Field, raw string, present bool) (any, string) {
	if f.Type == "boolean" {
		return present && isTruthy(raw), ""
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		if f.Required {
			return nil, msgRequired
		}
		if f.IsText() && !f.Nullable {
			return "", ""
		}
		return nil, ""
	}
	if f.IsEnum() && !f.HasChoice(s) {
		return nil, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", s)
	}

	switch f.Type {
	case "int", "bigint":
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, "Enter a whole number."
		}
		return n, ""
	case "decimal":
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, "Enter a number."
		}
		return n, ""
	case "date":
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, "Enter a valid date."
		}
		return t, ""
	case "timestamp":
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", time.DateTime} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, ""
			}
		}
		return nil, "Enter a valid date/time."
	case "uuid":
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, "Enter a valid UUID."
		}
		return id.String(), ""
	}

	if n := utf8.RuneCountInString(s); f.MaxLength > 0 && n > f.MaxLength {
		return nil, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", f.MaxLength, n)
	}
	return s, ""
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func inputType(f *metadata.Field) string {
	switch {
	case f.IsEnum():
		return "select"
	case f.Type == "boolean":
		return "checkbox"
	case f.Type == "int" || f.Type == "bigint" || f.Type == "decimal":
		return "number"
	case f.Type == "date":
		return "date"
	case f.Type == "timestamp":
		return "datetime-local"
	case f.Type == "text":
		return "textarea"
	}
	return "text"
}

func formatValue(f *metadata.Field, v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if f.Type == "date" {
			return t.Format(time.DateOnly)
		}
		return t.Format("2006-01-02T15:04")
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
