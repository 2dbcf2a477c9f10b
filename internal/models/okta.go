package models

import "encoding/json"

// Application is an Okta application as returned by GET /api/v1/apps/{id}.
// Only id, name and label are consumed; the remaining attributes are kept raw.
type Application struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Label      string                     `json:"label"`
	Status     string                     `json:"status,omitempty"`
	Attributes map[string]json.RawMessage `json:"-"`
}

// Group is an Okta group as returned by GET /api/v1/groups/{id}.
type Group struct {
	ID      string        `json:"id"`
	Profile *GroupProfile `json:"profile"`
}

// GroupProfile holds the group attributes copied into flat records.
// Description is optional in Okta and defaults to the empty string.
type GroupProfile struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
