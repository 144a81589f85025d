package model

// Entity type discriminators for the shared tags/attributes/artifacts tables.
const (
	EntityTypeProject       = "project"
	EntityTypeDataset       = "dataset"
	EntityTypeExperiment    = "experiment"
	EntityTypeExperimentRun = "experiment_run"
)

// Visibility values for catalog entities.
const (
	VisibilityPrivate      = "PRIVATE"
	VisibilityPublic       = "PUBLIC"
	VisibilityOrganization = "ORGANIZATION"
)
