package testutil

import (
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/models"
	"app-groups-sync/internal/okta"
)

// GroupBuilder helps build test groups
type GroupBuilder struct {
	group models.Group
}

// NewGroupBuilder starts a group with a profile named after its id
func NewGroupBuilder(id string) *GroupBuilder {
	return &GroupBuilder{group: models.Group{
		ID:      id,
		Profile: &models.GroupProfile{Name: id},
	}}
}

func (b *GroupBuilder) WithName(name string) *GroupBuilder {
	b.ensureProfile().Name = name
	return b
}

func (b *GroupBuilder) WithDescription(description string) *GroupBuilder {
	b.ensureProfile().Description = description
	return b
}

// WithoutProfile produces the malformed shape the join rejects.
func (b *GroupBuilder) WithoutProfile() *GroupBuilder {
	b.group.Profile = nil
	return b
}

func (b *GroupBuilder) Build() models.Group {
	group := b.group
	if group.Profile != nil {
		profile := *group.Profile
		group.Profile = &profile
	}
	return group
}

func (b *GroupBuilder) ensureProfile() *models.GroupProfile {
	if b.group.Profile == nil {
		b.group.Profile = &models.GroupProfile{}
	}
	return b.group.Profile
}

func AppResult(id, name, label string) okta.Result[models.Application] {
	return okta.Result[models.Application]{Outcome: okta.OutcomeOK, Value: models.Application{ID: id, Name: name, Label: label}}
}

func MembershipsResult(ids ...string) okta.Result[[]string] {
	if ids == nil {
		ids = []string{}
	}
	return okta.Result[[]string]{Outcome: okta.OutcomeOK, Value: ids}
}

func GroupResult(id, name, description string) okta.Result[models.Group] {
	return okta.Result[models.Group]{
		Outcome: okta.OutcomeOK,
		Value:   NewGroupBuilder(id).WithName(name).WithDescription(description).Build(),
	}
}

// FailedGroup is a non-OK group lookup with the given outcome.
func FailedGroup(outcome okta.Outcome, id string) okta.Result[models.Group] {
	return okta.Result[models.Group]{Outcome: outcome, Err: errors.NotFoundError("group " + id)}
}
