package engine

import (
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/store"
)

func TestBuildForm_AllowListOnly(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.FormFields = []string{"title", "name"}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, nil, logger)
	require.Len(t, form.Fields, 2)
	assert.Equal(t, "title", form.Fields[0].Name)
	assert.Equal(t, "select", form.Fields[0].Type)
	assert.Equal(t, "name", form.Fields[1].Name)
	assert.True(t, form.Fields[1].Required)
	assert.Equal(t, 100, form.Fields[1].MaxLength)
	assert.False(t, form.Valid())
}

func TestBuildForm_EmptyAllowList(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.FormFields = nil
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, store.Row{"name": "Ann Smith"}, logger)
	assert.NotNil(t, form.Fields)
	assert.Empty(t, form.Fields)
	assert.True(t, form.Bind(map[string]string{"name": "X", "owner": "u9"}))
	assert.Empty(t, form.Cleaned())
}

func TestBuildForm_InitialValues(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.FormFields = []string{"name", "birth_date", "checked"}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, nil, logger)
	assert.Equal(t, "false", form.Fields[2].Value)

	born := time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC)
	form = BuildForm(cfg, store.Row{"name": "Ann Smith", "birth_date": born, "checked": true}, logger)
	assert.Equal(t, "Ann Smith", form.Fields[0].Value)
	assert.Equal(t, "1980-05-17", form.Fields[1].Value)
	assert.Equal(t, "date", form.Fields[1].Type)
	assert.Equal(t, "true", form.Fields[2].Value)
	assert.Equal(t, "checkbox", form.Fields[2].Type)
}

func TestForm_BindCoercion(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.FormFields = []string{"name", "title", "birth_date", "checked"}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, nil, logger)
	require.True(t, form.Bind(map[string]string{"name": "  Zed  ", "title": "MR", "birth_date": "1990-01-02", "checked": "on"}))
	cleaned := form.Cleaned()
	assert.Equal(t, "Zed", cleaned["name"])
	assert.Equal(t, "MR", cleaned["title"])
	assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), cleaned["birth_date"])
	assert.Equal(t, true, cleaned["checked"])

	form = BuildForm(cfg, nil, logger)
	require.True(t, form.Bind(map[string]string{"name": "Zed"}))
	cleaned = form.Cleaned()
	assert.Equal(t, "", cleaned["title"])
	assert.Nil(t, cleaned["birth_date"])
	assert.Equal(t, false, cleaned["checked"])
}

func TestForm_BindErrors(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.FormFields = []string{"name", "title", "birth_date"}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, nil, logger)
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, form.Bind(map[string]string{"name": string(long), "title": "DR", "birth_date": "17/05/1980"}))
	assert.Equal(t, []ErrorDetail{
		{Field: "name", Message: "Ensure this value has at most 100 characters (it has 101)."},
		{Field: "title", Message: "Select a valid choice. DR is not one of the available choices."},
		{Field: "birth_date", Message: "Enter a valid date."},
	}, form.Details())
	assert.Equal(t, string(long), form.Fields[0].Value)

	form = BuildForm(cfg, nil, logger)
	assert.False(t, form.Bind(map[string]string{"name": "   "}))
	assert.Equal(t, msgRequired, form.Fields[0].Error)
}

func TestForm_ReadonlyIgnoresSubmission(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.ReadonlyFields = []string{"name"}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, store.Row{"name": "Ann Smith", "title": "MS"}, logger)
	require.True(t, form.Bind(map[string]string{"name": "", "title": "MRS"}))
	cleaned := form.Cleaned()
	assert.NotContains(t, cleaned, "name")
	assert.Equal(t, "MRS", cleaned["title"])
	assert.Equal(t, "Ann Smith", form.Fields[0].Value)
}

func TestForm_Validators(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.Validators = []frontend.Validator{
		{Field: "name", Expression: `len(value) >= 3`, Message: "Name is too short."},
		{Field: "title", Expression: `value != "MR" || record.name != "Eve"`},
	}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, nil, logger)
	assert.False(t, form.Bind(map[string]string{"name": "Al", "title": "MS"}))
	assert.Equal(t, "Name is too short.", form.Fields[0].Error)

	form = BuildForm(cfg, nil, logger)
	assert.False(t, form.Bind(map[string]string{"name": "Eve", "title": "MR"}))
	assert.Equal(t, "Invalid value", form.Fields[1].Error)
	assert.NotContains(t, form.Cleaned(), "title")

	form = BuildForm(cfg, nil, logger)
	assert.True(t, form.Bind(map[string]string{"name": "Eve", "title": "MS"}))
}

func TestForm_NonFieldErrors(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	cfg, _ := testConfig(t, defaultOptions())

	form := BuildForm(cfg, nil, logger)
	require.True(t, form.Bind(map[string]string{"name": "Ann Smith"}))
	form.AddError("Author with these values already exists.")
	assert.False(t, form.Valid())
	assert.Equal(t, []ErrorDetail{{Message: "Author with these values already exists."}}, form.Details())
}

func TestBind_ReadonlyOnAddUsesDefault(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	opts := defaultOptions()
	opts.FormFields = []string{"name", "title", "checked"}
	opts.ReadonlyFields = []string{"name", "checked"}
	cfg, _ := testConfig(t, opts)

	form := BuildForm(cfg, nil, logger)
	assert.False(t, form.Bind(map[string]string{"name": "Zed", "title": "MR", "checked": "on"}))
	assert.Equal(t, []ErrorDetail{{Field: "name", Message: "This field is required."}}, form.Details())
	assert.Equal(t, store.Row{"title": "MR", "checked": false}, form.Cleaned())

	form = BuildForm(cfg, store.Row{"name": "Ann Smith", "title": "MS", "checked": true}, logger)
	require.True(t, form.Bind(map[string]string{"name": "Zed", "title": "MR"}))
	assert.Equal(t, store.Row{"title": "MR"}, form.Cleaned())
}
