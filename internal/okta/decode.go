package okta

import (
	"bytes"
	"encoding/json"
	"fmt"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/models"
)

// decodeObject requires body to be a single JSON object.
func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.ShapeError("response body is not a JSON object", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, errors.ShapeError("response body is not a JSON object", err)
	}
	return fields, nil
}

// stringField reads key as a JSON string. present is false when the key is absent
// or null; err is set when the value has another type.
func stringField(fields map[string]json.RawMessage, key string) (value string, present bool, err error) {
	raw, exists := fields[key]
	if !exists || string(bytes.TrimSpace(raw)) == "null" {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, errors.ShapeError(fmt.Sprintf("field %q is not a string", key), err)
	}
	return value, true, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	value, present, err := stringField(fields, key)
	if err != nil {
		return "", err
	}
	if !present {
		return "", errors.ShapeError(fmt.Sprintf("field %q is missing", key), nil)
	}
	return value, nil
}

// decodeApplication validates an application body. An empty or missing id falls
// back to requestedID.
func decodeApplication(body []byte, requestedID string) (models.Application, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return models.Application{}, err
	}

	name, err := requiredString(fields, "name")
	if err != nil {
		return models.Application{}, err
	}
	label, err := requiredString(fields, "label")
	if err != nil {
		return models.Application{}, err
	}
	id, _, err := stringField(fields, "id")
	if err != nil {
		return models.Application{}, err
	}
	if id == "" {
		id = requestedID
	}
	status, _, _ := stringField(fields, "status")

	attributes := make(map[string]json.RawMessage, len(fields))
	for key, raw := range fields {
		switch key {
		case "id", "name", "label", "status":
		default:
			attributes[key] = raw
		}
	}

	return models.Application{
		ID:         id,
		Name:       name,
		Label:      label,
		Status:     status,
		Attributes: attributes,
	}, nil
}

// decodeMembershipPage returns the group ids of one page of
// /apps/{id}/groups. Every element must be an object with a non-empty string id.
func decodeMembershipPage(body []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.ShapeError("memberships body is not a JSON array", nil)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, errors.ShapeError("memberships body is not a JSON array", err)
	}

	ids := make([]string, 0, len(elements))
	for i, element := range elements {
		fields, err := decodeObject(element)
		if err != nil {
			return nil, errors.ShapeError(fmt.Sprintf("membership %d is not an object", i), err)
		}
		id, _, err := stringField(fields, "id")
		if err != nil {
			return nil, errors.ShapeError(fmt.Sprintf("membership %d has a non-string id", i), err)
		}
		if id == "" {
			return nil, errors.ShapeError(fmt.Sprintf("membership %d has no id", i), nil)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// decodeGroup validates a group body. profile and profile.name are required;
// a missing or null description becomes "".
func decodeGroup(body []byte, requestedID string) (models.Group, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return models.Group{}, err
	}

	rawProfile, exists := fields["profile"]
	if !exists || string(bytes.TrimSpace(rawProfile)) == "null" {
		return models.Group{}, errors.ShapeError("group profile is missing", nil)
	}
	profile, err := decodeObject(rawProfile)
	if err != nil {
		return models.Group{}, errors.ShapeError("group profile is not an object", err)
	}

	name, err := requiredString(profile, "name")
	if err != nil {
		return models.Group{}, err
	}
	description, _, err := stringField(profile, "description")
	if err != nil {
		return models.Group{}, err
	}

	id, _, err := stringField(fields, "id")
	if err != nil {
		return models.Group{}, err
	}
	if id == "" {
		id = requestedID
	}

	return models.Group{
		ID: id,
		Profile: &models.GroupProfile{
			Name:        name,
			Description: description,
		},
	}, nil
}
