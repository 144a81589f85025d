package endpoints

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zulily/modeldb/pkg/catalog"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/server"
	"github.com/zulily/modeldb/pkg/store"
)

// RegisterDatasetsEndpoints registers the datasets API endpoints.
func RegisterDatasetsEndpoints(s *server.Server) {
	datasets := s.Datasets

	router := s.Router.PathPrefix("/v1/datasets").Subrouter()
	router.Use(s.Auth.Optional)

	router.HandleFunc("", handleCreateDataset(datasets)).Methods("POST")
	router.HandleFunc("", handleDeleteDatasets(datasets)).Methods("DELETE")
	router.HandleFunc("", handleListDatasets(datasets)).Methods("GET")
	router.HandleFunc("/find", handleFindDatasets(s, datasets)).Methods("POST")

	router.HandleFunc("/{id}", handleGetDataset(datasets)).Methods("GET")

	router.HandleFunc("/{id}/tags", handleAddDatasetTags(datasets)).Methods("POST")
	router.HandleFunc("/{id}/tags", handleDeleteDatasetTags(datasets)).Methods("DELETE")
	router.HandleFunc("/{id}/tags", handleGetDatasetTags(datasets)).Methods("GET")

	router.HandleFunc("/{id}/attributes", handleAddDatasetAttributes(datasets)).Methods("POST")
	router.HandleFunc("/{id}/attributes", handleUpdateDatasetAttribute(datasets)).Methods("PUT")
	router.HandleFunc("/{id}/attributes", handleDeleteDatasetAttributes(datasets)).Methods("DELETE")
	router.HandleFunc("/{id}/attributes", handleGetDatasetAttributes(datasets)).Methods("GET")

	router.HandleFunc("/{id}/name", handleUpdateDatasetName(datasets)).Methods("PUT")
	router.HandleFunc("/{id}/description", handleUpdateDatasetDescription(datasets)).Methods("PUT")

	workspaces := s.Router.PathPrefix("/v1/workspaces").Subrouter()
	workspaces.Use(s.Auth.Optional)
	workspaces.HandleFunc("/{workspace}/datasets", handleWorkspaceDatasets(datasets)).Methods("GET")
}

func handleCreateDataset(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string            `json:"name"`
			Description string            `json:"description"`
			Workspace   string            `json:"workspace"`
			Visibility  string            `json:"visibility"`
			DatasetType string            `json:"dataset_type"`
			Tags        []string          `json:"tags"`
			Attributes  []KeyValueRequest `json:"attributes"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		created, err := datasets.Create(r.Context(), store.Dataset{
			Name:        body.Name,
			Description: body.Description,
			Workspace:   body.Workspace,
			Visibility:  body.Visibility,
			DatasetType: body.DatasetType,
			Tags:        body.Tags,
			Attributes:  fromKeyValueRequests(body.Attributes),
		})
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, toDatasetResponse(created))
	}
}

func handleFindDatasets(s *server.Server, datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Filters    []FilterRequest `json:"filters"`
			SortKey    string          `json:"sort_key"`
			Ascending  bool            `json:"ascending"`
			PageNumber int             `json:"page_number"`
			PageLimit  int             `json:"page_limit"`
			Workspace  string          `json:"workspace"`
			IDs        []string        `json:"ids"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if s.Config != nil && body.PageLimit > s.Config.PageLimitMax {
			respondWithError(w, errs.InvalidArgument("page limit %d exceeds the maximum of %d", body.PageLimit, s.Config.PageLimitMax))
			return
		}

		page, err := datasets.Find(r.Context(), catalog.FindDatasetsRequest{
			Filters:    fromFilterRequests(body.Filters),
			SortKey:    body.SortKey,
			Ascending:  body.Ascending,
			PageNumber: body.PageNumber,
			PageLimit:  body.PageLimit,
			Workspace:  body.Workspace,
			IDs:        body.IDs,
		})
		if err != nil {
			respondWithError(w, err)
			return
		}

		out := DatasetPageResponse{
			Datasets:     make([]DatasetResponse, 0, len(page.Datasets)),
			TotalRecords: page.TotalRecords,
		}
		for i := range page.Datasets {
			out.Datasets = append(out.Datasets, toDatasetResponse(&page.Datasets[i]))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

// handleListDatasets mirrors the project collection lookups: ?ids=a,b
// fetches by id, ?key=...&value=... matches a single equality clause.
func handleListDatasets(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if ids := splitIDs(q.Get("ids")); len(ids) > 0 {
			found, err := datasets.GetMany(r.Context(), ids)
			if err != nil {
				respondWithError(w, err)
				return
			}
			out := make([]DatasetResponse, 0, len(found))
			for i := range found {
				out = append(out, toDatasetResponse(&found[i]))
			}
			respondWithJSON(w, http.StatusOK, map[string]interface{}{"datasets": out})
			return
		}

		key := q.Get("key")
		if key == "" {
			respondWithError(w, errs.InvalidArgument("either ids or key and value are required"))
			return
		}
		vt := valueTypeParam(q.Get("value_type"))
		value, err := clauseValue(q.Get("value"), vt)
		if err != nil {
			respondWithError(w, err)
			return
		}
		page, err := datasets.FindByKeyValue(r.Context(), key, value, vt)
		if err != nil {
			respondWithError(w, err)
			return
		}
		out := DatasetPageResponse{
			Datasets:     make([]DatasetResponse, 0, len(page.Datasets)),
			TotalRecords: page.TotalRecords,
		}
		for i := range page.Datasets {
			out.Datasets = append(out.Datasets, toDatasetResponse(&page.Datasets[i]))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

func handleGetDataset(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := datasets.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleDeleteDatasets(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		deleted, err := datasets.Delete(r.Context(), body.IDs)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"deleted_ids": deleted})
	}
}

func handleAddDatasetTags(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tags []string `json:"tags"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		d, err := datasets.AddTags(r.Context(), mux.Vars(r)["id"], body.Tags)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleDeleteDatasetTags(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tags      []string `json:"tags"`
			DeleteAll bool     `json:"delete_all"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		d, err := datasets.DeleteTags(r.Context(), mux.Vars(r)["id"], body.Tags, body.DeleteAll)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleGetDatasetTags(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := datasets.GetTags(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
	}
}

func handleAddDatasetAttributes(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Attributes []KeyValueRequest `json:"attributes"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		d, err := datasets.AddAttributes(r.Context(), mux.Vars(r)["id"], fromKeyValueRequests(body.Attributes))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleUpdateDatasetAttribute(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Attribute KeyValueRequest `json:"attribute"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		attrs := fromKeyValueRequests([]KeyValueRequest{body.Attribute})
		d, rows, err := datasets.UpdateAttribute(r.Context(), mux.Vars(r)["id"], attrs[0])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"dataset": toDatasetResponse(d),
			"updated": rows > 0,
		})
	}
}

func handleDeleteDatasetAttributes(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Keys      []string `json:"keys"`
			DeleteAll bool     `json:"delete_all"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		d, err := datasets.DeleteAttributes(r.Context(), mux.Vars(r)["id"], body.Keys, body.DeleteAll)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleGetDatasetAttributes(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := r.URL.Query()["key"]
		getAll := r.URL.Query().Get("all") == "true" || len(keys) == 0

		attrs, err := datasets.GetAttributes(r.Context(), mux.Vars(r)["id"], keys, getAll)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"attributes": toKeyValueResponses(attrs)})
	}
}

func handleUpdateDatasetName(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		d, err := datasets.UpdateName(r.Context(), mux.Vars(r)["id"], body.Name)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleUpdateDatasetDescription(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Description string `json:"description"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		d, err := datasets.UpdateDescription(r.Context(), mux.Vars(r)["id"], body.Description)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toDatasetResponse(d))
	}
}

func handleWorkspaceDatasets(datasets server.DatasetsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := datasets.WorkspaceIDs(r.Context(), mux.Vars(r)["workspace"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"dataset_ids": ids})
	}
}
