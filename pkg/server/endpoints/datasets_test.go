package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zulily/modeldb/pkg/catalog"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/store"
)

func TestListDatasetsByIDs(t *testing.T) {
	datasets := new(MockDatasets)
	s := newTestServer(new(MockProjects), datasets)

	datasets.On("GetMany", mock.Anything, []string{"d1", "d2"}).
		Return([]store.Dataset{{ID: "d1", Name: "clickstream"}}, nil)

	req := httptest.NewRequest("GET", "/v1/datasets?ids=d1,d2", nil)
	req.Header.Set("Authorization", aliceToken())
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Datasets []DatasetResponse `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Datasets, 1)
	assert.Equal(t, "d1", got.Datasets[0].ID)
	datasets.AssertExpectations(t)
}

func TestFindDatasets(t *testing.T) {
	datasets := new(MockDatasets)
	s := newTestServer(new(MockProjects), datasets)

	datasets.On("Find", mock.Anything, mock.MatchedBy(func(req catalog.FindDatasetsRequest) bool {
		return req.Workspace == "team-ml"
	})).Return(&store.DatasetPage{
		Datasets:     []store.Dataset{{ID: "d1", Name: "clickstream"}},
		TotalRecords: 1,
	}, nil)

	body := `{"workspace": "team-ml"}`
	req := httptest.NewRequest("POST", "/v1/datasets/find", strings.NewReader(body))
	req.Header.Set("Authorization", aliceToken())
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got DatasetPageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Datasets, 1)
	assert.Equal(t, "clickstream", got.Datasets[0].Name)
	datasets.AssertExpectations(t)
}

func TestUpdateDatasetName(t *testing.T) {
	datasets := new(MockDatasets)
	s := newTestServer(new(MockProjects), datasets)

	datasets.On("UpdateName", mock.Anything, "d1", "clickstream-v2").
		Return(&store.Dataset{ID: "d1", Name: "clickstream-v2"}, nil)

	req := httptest.NewRequest("PUT", "/v1/datasets/d1/name", strings.NewReader(`{"name": "clickstream-v2"}`))
	req.Header.Set("Authorization", aliceToken())
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got DatasetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "clickstream-v2", got.Name)
	datasets.AssertExpectations(t)
}

func TestUpdateDatasetNameConflict(t *testing.T) {
	datasets := new(MockDatasets)
	s := newTestServer(new(MockProjects), datasets)

	datasets.On("UpdateName", mock.Anything, "d1", "taken").
		Return(nil, errs.AlreadyExists("dataset named taken already exists in workspace"))

	req := httptest.NewRequest("PUT", "/v1/datasets/d1/name", strings.NewReader(`{"name": "taken"}`))
	req.Header.Set("Authorization", aliceToken())
	w := httptest.NewRecorder()

	s.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
