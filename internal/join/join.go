// Package join flattens an application and its groups into warehouse rows.
package join

import (
	"fmt"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/models"
)

// Join returns one record per group, in the order the groups were given. The
// application fields are copied verbatim into every record. A group without a
// profile or profile name fails the whole join.
func Join(app models.Application, groups []models.Group) (models.Batch, error) {
	batch := make(models.Batch, 0, len(groups))

	for i, group := range groups {
		if group.Profile == nil {
			return nil, errors.ShapeError(fmt.Sprintf("group %d (%s) has no profile", i, group.ID), nil).
				WithContext("group_index", i).
				WithContext("group_id", group.ID)
		}
		if group.Profile.Name == "" {
			return nil, errors.ShapeError(fmt.Sprintf("group %d (%s) has no profile name", i, group.ID), nil).
				WithContext("group_index", i).
				WithContext("group_id", group.ID)
		}

		batch = append(batch, models.FlatRecord{
			AppID:            app.ID,
			AppName:          app.Name,
			AppLabel:         app.Label,
			GroupID:          group.ID,
			GroupName:        group.Profile.Name,
			GroupDescription: group.Profile.Description,
		})
	}

	return batch, nil
}
