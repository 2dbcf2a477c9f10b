package testutil

import "app-groups-sync/internal/models"

// The reference scenario: app123 has g1 (Eng, Engineering) and g2 (Sales, no description).
const (
	ScenarioAppID    = "app123"
	ScenarioAppName  = "okta_app"
	ScenarioAppLabel = "My App"
)

func ScenarioApp() models.Application {
	return models.Application{ID: ScenarioAppID, Name: ScenarioAppName, Label: ScenarioAppLabel, Status: "ACTIVE"}
}

func ScenarioGroups() []models.Group {
	return []models.Group{
		NewGroupBuilder("g1").WithName("Eng").WithDescription("Engineering").Build(),
		NewGroupBuilder("g2").WithName("Sales").Build(),
	}
}

// ScenarioBatch is what joining ScenarioApp with ScenarioGroups must produce.
func ScenarioBatch() models.Batch {
	return models.Batch{
		{AppID: ScenarioAppID, AppName: ScenarioAppName, AppLabel: ScenarioAppLabel, GroupID: "g1", GroupName: "Eng", GroupDescription: "Engineering"},
		{AppID: ScenarioAppID, AppName: ScenarioAppName, AppLabel: ScenarioAppLabel, GroupID: "g2", GroupName: "Sales", GroupDescription: ""},
	}
}
