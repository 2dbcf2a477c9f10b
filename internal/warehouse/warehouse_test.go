package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
)

func TestTableRefString(t *testing.T) {
	assert.Equal(t, "proj.okta.apps_groups", TableRef{Project: "proj", Dataset: "okta", Table: "apps_groups"}.String())
	assert.Equal(t, "okta.apps_groups", TableRef{Dataset: "okta", Table: "apps_groups"}.String())
	assert.Equal(t, "apps_groups", TableRef{Table: "apps_groups"}.String())
}

func TestRowErrorsError(t *testing.T) {
	table := TableRef{Project: "p", Dataset: "d", Table: "t"}

	err := &RowErrors{
		Table: table,
		Errors: []RowError{
			{Index: 1, Reason: "invalid", Message: "no such field", Location: "group_nme"},
			{Index: 2, Reason: "stopped", Message: "batch aborted"},
		},
	}
	assert.Equal(t, "insert into p.d.t rejected 2 row(s); first at index 1: invalid: no such field (group_nme)", err.Error())

	var rowErrs *RowErrors
	assert.True(t, errors.As(error(err), &rowErrs))

	assert.Equal(t, "insert into p.d.t reported row errors", (&RowErrors{Table: table}).Error())
}

type stubSink struct{ name string }

func (s *stubSink) Name() string                                         { return s.name }
func (s *stubSink) Append(context.Context, TableRef, models.Batch) error { return nil }
func (s *stubSink) Health(context.Context) error                         { return nil }
func (s *stubSink) Close() error                                         { return nil }

type stubFactory struct{ sinkType string }

func (f *stubFactory) Create(config Config, logger logging.Logger) (Sink, error) {
	return &stubSink{name: config.Table}, nil
}

func (f *stubFactory) GetType() string { return f.sinkType }

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", &stubFactory{sinkType: "stub"})
	registry.Register("another", &stubFactory{sinkType: "another"})

	assert.True(t, registry.IsRegistered("stub"))
	assert.False(t, registry.IsRegistered("snowflake"))
	assert.Equal(t, []string{"another", "stub"}, registry.GetAvailableTypes())

	sink, err := registry.Create("stub", Config{Table: "apps_groups"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "apps_groups", sink.Name())

	_, err = registry.Create("snowflake", Config{}, nil)
	assert.Error(t, err)
}

func TestConfigTableRef(t *testing.T) {
	config := Config{ProjectID: "p", Dataset: "d", Table: "t"}
	assert.Equal(t, TableRef{Project: "p", Dataset: "d", Table: "t"}, config.TableRef())
}
