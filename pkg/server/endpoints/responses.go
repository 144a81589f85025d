package endpoints

import (
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

// KeyValueResponse is one typed attribute in the API surface.
type KeyValueResponse struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	ValueType string      `json:"value_type"`
}

// ArtifactResponse is one artifact reference in the API surface.
type ArtifactResponse struct {
	Key          string `json:"key"`
	Path         string `json:"path"`
	ArtifactType string `json:"artifact_type,omitempty"`
}

// ProjectResponse represents a project in the API response
type ProjectResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ShortName   string             `json:"short_name,omitempty"`
	Description string             `json:"description,omitempty"`
	Owner       string             `json:"owner"`
	Workspace   string             `json:"workspace,omitempty"`
	Visibility  string             `json:"visibility"`
	ReadmeText  string             `json:"readme_text,omitempty"`
	CodeVersion string             `json:"code_version,omitempty"`
	Tags        []string           `json:"tags"`
	Attributes  []KeyValueResponse `json:"attributes"`
	Artifacts   []ArtifactResponse `json:"artifacts,omitempty"`
	DateCreated int64              `json:"date_created"`
	DateUpdated int64              `json:"date_updated"`
}

// ProjectPageResponse is one find page plus the total match count.
type ProjectPageResponse struct {
	Projects     []ProjectResponse `json:"projects"`
	TotalRecords int64             `json:"total_records"`
}

// DatasetResponse represents a dataset in the API response
type DatasetResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Owner       string             `json:"owner"`
	Workspace   string             `json:"workspace,omitempty"`
	Visibility  string             `json:"visibility"`
	DatasetType string             `json:"dataset_type,omitempty"`
	Tags        []string           `json:"tags"`
	Attributes  []KeyValueResponse `json:"attributes"`
	DateCreated int64              `json:"date_created"`
	DateUpdated int64              `json:"date_updated"`
}

// DatasetPageResponse is one find page plus the total match count.
type DatasetPageResponse struct {
	Datasets     []DatasetResponse `json:"datasets"`
	TotalRecords int64             `json:"total_records"`
}

// KeyValueRequest is one typed attribute in a request body.
type KeyValueRequest struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	ValueType string      `json:"value_type"`
}

// ArtifactRequest is one artifact reference in a request body.
type ArtifactRequest struct {
	Key          string `json:"key"`
	Path         string `json:"path"`
	ArtifactType string `json:"artifact_type"`
}

// FilterRequest is one find filter clause in a request body.
type FilterRequest struct {
	Key       string      `json:"key"`
	Operator  string      `json:"operator"`
	Value     interface{} `json:"value"`
	ValueType string      `json:"value_type"`
}

func toKeyValueResponses(attrs []store.KeyValue) []KeyValueResponse {
	out := make([]KeyValueResponse, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, KeyValueResponse{Key: a.Key, Value: a.Value, ValueType: string(a.ValueType)})
	}
	return out
}

func toArtifactResponses(artifacts []store.Artifact) []ArtifactResponse {
	out := make([]ArtifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, ArtifactResponse{Key: a.Key, Path: a.Path, ArtifactType: a.ArtifactType})
	}
	return out
}

func toProjectResponse(p *store.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		ShortName:   p.ShortName,
		Description: p.Description,
		Owner:       p.Owner,
		Workspace:   p.Workspace,
		Visibility:  p.Visibility,
		ReadmeText:  p.ReadmeText,
		CodeVersion: p.CodeVersion,
		Tags:        p.Tags,
		Attributes:  toKeyValueResponses(p.Attributes),
		Artifacts:   toArtifactResponses(p.Artifacts),
		DateCreated: p.DateCreated,
		DateUpdated: p.DateUpdated,
	}
}

func toDatasetResponse(d *store.Dataset) DatasetResponse {
	return DatasetResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Owner:       d.Owner,
		Workspace:   d.Workspace,
		Visibility:  d.Visibility,
		DatasetType: d.DatasetType,
		Tags:        d.Tags,
		Attributes:  toKeyValueResponses(d.Attributes),
		DateCreated: d.DateCreated,
		DateUpdated: d.DateUpdated,
	}
}

func fromKeyValueRequests(attrs []KeyValueRequest) []store.KeyValue {
	out := make([]store.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, store.KeyValue{Key: a.Key, Value: a.Value, ValueType: query.ValueType(a.ValueType)})
	}
	return out
}

func fromArtifactRequests(artifacts []ArtifactRequest) []store.Artifact {
	out := make([]store.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, store.Artifact{Key: a.Key, Path: a.Path, ArtifactType: a.ArtifactType})
	}
	return out
}

func fromFilterRequests(filters []FilterRequest) []query.KeyValueQuery {
	out := make([]query.KeyValueQuery, 0, len(filters))
	for _, f := range filters {
		out = append(out, query.KeyValueQuery{
			Key:       f.Key,
			Operator:  query.Operator(f.Operator),
			Value:     f.Value,
			ValueType: query.ValueType(f.ValueType),
		})
	}
	return out
}
