package endpoints

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/zulily/modeldb/pkg/catalog"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/server"
	"github.com/zulily/modeldb/pkg/store"
)

// RegisterProjectsEndpoints registers the projects API endpoints.
// Authentication is optional on every route: the catalog services
// decide what an anonymous caller may see or touch.
func RegisterProjectsEndpoints(s *server.Server) {
	projects := s.Projects

	router := s.Router.PathPrefix("/v1/projects").Subrouter()
	router.Use(s.Auth.Optional)

	router.HandleFunc("", handleCreateProject(projects)).Methods("POST")
	router.HandleFunc("", handleDeleteProjects(projects)).Methods("DELETE")
	router.HandleFunc("", handleListProjects(projects)).Methods("GET")
	router.HandleFunc("/find", handleFindProjects(s, projects)).Methods("POST")
	router.HandleFunc("/counts", handleProjectCounts(projects)).Methods("POST")

	router.HandleFunc("/{id}", handleGetProject(projects)).Methods("GET")

	router.HandleFunc("/{id}/tags", handleAddProjectTags(projects)).Methods("POST")
	router.HandleFunc("/{id}/tags", handleDeleteProjectTags(projects)).Methods("DELETE")
	router.HandleFunc("/{id}/tags", handleGetProjectTags(projects)).Methods("GET")

	router.HandleFunc("/{id}/attributes", handleAddProjectAttributes(projects)).Methods("POST")
	router.HandleFunc("/{id}/attributes", handleUpdateProjectAttribute(projects)).Methods("PUT")
	router.HandleFunc("/{id}/attributes", handleDeleteProjectAttributes(projects)).Methods("DELETE")
	router.HandleFunc("/{id}/attributes", handleGetProjectAttributes(projects)).Methods("GET")

	router.HandleFunc("/{id}/description", handleUpdateProjectDescription(projects)).Methods("PUT")
	router.HandleFunc("/{id}/readme", handleUpdateProjectReadme(projects)).Methods("PUT")
	router.HandleFunc("/{id}/readme", handleGetProjectReadme(projects)).Methods("GET")
	router.HandleFunc("/{id}/short-name", handleSetProjectShortName(projects)).Methods("PUT")
	router.HandleFunc("/{id}/code-version", handleLogProjectCodeVersion(projects)).Methods("POST")

	router.HandleFunc("/{id}/artifacts", handleLogProjectArtifacts(projects)).Methods("POST")
	router.HandleFunc("/{id}/artifacts", handleGetProjectArtifacts(projects)).Methods("GET")
	router.HandleFunc("/{id}/artifacts/{key:.+}", handleDeleteProjectArtifact(projects)).Methods("DELETE")

	router.HandleFunc("/{id}/copy", handleDeepCopyProject(projects)).Methods("POST")

	workspaces := s.Router.PathPrefix("/v1/workspaces").Subrouter()
	workspaces.Use(s.Auth.Optional)
	workspaces.HandleFunc("/{workspace}/projects", handleWorkspaceProjects(projects)).Methods("GET")
}

func handleCreateProject(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string            `json:"name"`
			Description string            `json:"description"`
			Workspace   string            `json:"workspace"`
			Visibility  string            `json:"visibility"`
			Tags        []string          `json:"tags"`
			Attributes  []KeyValueRequest `json:"attributes"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		created, err := projects.Create(r.Context(), store.Project{
			Name:        body.Name,
			Description: body.Description,
			Workspace:   body.Workspace,
			Visibility:  body.Visibility,
			Tags:        body.Tags,
			Attributes:  fromKeyValueRequests(body.Attributes),
		})
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, toProjectResponse(created))
	}
}

func handleFindProjects(s *server.Server, projects server.ProjectsService) http.HandlerFunc {
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

		page, err := projects.Find(r.Context(), catalog.FindProjectsRequest{
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

		out := ProjectPageResponse{
			Projects:     make([]ProjectResponse, 0, len(page.Projects)),
			TotalRecords: page.TotalRecords,
		}
		for i := range page.Projects {
			out.Projects = append(out.Projects, toProjectResponse(&page.Projects[i]))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

// handleListProjects serves the two convenience lookups on the
// collection: ?ids=a,b,c fetches by id, ?key=...&value=... matches a
// single equality clause.
func handleListProjects(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if ids := splitIDs(q.Get("ids")); len(ids) > 0 {
			found, err := projects.GetMany(r.Context(), ids)
			if err != nil {
				respondWithError(w, err)
				return
			}
			out := make([]ProjectResponse, 0, len(found))
			for i := range found {
				out = append(out, toProjectResponse(&found[i]))
			}
			respondWithJSON(w, http.StatusOK, map[string]interface{}{"projects": out})
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
		page, err := projects.FindByKeyValue(r.Context(), key, value, vt)
		if err != nil {
			respondWithError(w, err)
			return
		}
		out := ProjectPageResponse{
			Projects:     make([]ProjectResponse, 0, len(page.Projects)),
			TotalRecords: page.TotalRecords,
		}
		for i := range page.Projects {
			out.Projects = append(out.Projects, toProjectResponse(&page.Projects[i]))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

func handleGetProject(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := projects.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleDeleteProjects(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		deleted, err := projects.Delete(r.Context(), body.IDs)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"deleted_ids": deleted})
	}
}

func handleAddProjectTags(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tags []string `json:"tags"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.AddTags(r.Context(), mux.Vars(r)["id"], body.Tags)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleDeleteProjectTags(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tags      []string `json:"tags"`
			DeleteAll bool     `json:"delete_all"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.DeleteTags(r.Context(), mux.Vars(r)["id"], body.Tags, body.DeleteAll)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleGetProjectTags(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := projects.GetTags(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
	}
}

func handleAddProjectAttributes(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Attributes []KeyValueRequest `json:"attributes"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.AddAttributes(r.Context(), mux.Vars(r)["id"], fromKeyValueRequests(body.Attributes))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleUpdateProjectAttribute(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Attribute KeyValueRequest `json:"attribute"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		attrs := fromKeyValueRequests([]KeyValueRequest{body.Attribute})
		p, rows, err := projects.UpdateAttribute(r.Context(), mux.Vars(r)["id"], attrs[0])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"project": toProjectResponse(p),
			"updated": rows > 0,
		})
	}
}

func handleDeleteProjectAttributes(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Keys      []string `json:"keys"`
			DeleteAll bool     `json:"delete_all"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.DeleteAttributes(r.Context(), mux.Vars(r)["id"], body.Keys, body.DeleteAll)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleGetProjectAttributes(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := r.URL.Query()["key"]
		getAll := r.URL.Query().Get("all") == "true" || len(keys) == 0

		attrs, err := projects.GetAttributes(r.Context(), mux.Vars(r)["id"], keys, getAll)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"attributes": toKeyValueResponses(attrs)})
	}
}

func handleUpdateProjectDescription(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Description string `json:"description"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.UpdateDescription(r.Context(), mux.Vars(r)["id"], body.Description)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleUpdateProjectReadme(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ReadmeText string `json:"readme_text"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.UpdateReadme(r.Context(), mux.Vars(r)["id"], body.ReadmeText)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleGetProjectReadme(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markdown, html, err := projects.Readme(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"readme_text": markdown,
			"html":        html,
		})
	}
}

func handleSetProjectShortName(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ShortName string `json:"short_name"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.SetShortName(r.Context(), mux.Vars(r)["id"], body.ShortName)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleLogProjectCodeVersion(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			CodeVersion string `json:"code_version"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.LogCodeVersion(r.Context(), mux.Vars(r)["id"], body.CodeVersion)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleLogProjectArtifacts(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Artifacts []ArtifactRequest `json:"artifacts"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		p, err := projects.LogArtifacts(r.Context(), mux.Vars(r)["id"], fromArtifactRequests(body.Artifacts))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleGetProjectArtifacts(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifacts, err := projects.GetArtifacts(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"artifacts": toArtifactResponses(artifacts)})
	}
}

func handleDeleteProjectArtifact(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		key, _ := url.PathUnescape(vars["key"])

		p, err := projects.DeleteArtifact(r.Context(), vars["id"], key)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toProjectResponse(p))
	}
}

func handleDeepCopyProject(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Workspace string `json:"workspace"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		clone, err := projects.DeepCopy(r.Context(), mux.Vars(r)["id"], body.Workspace)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, toProjectResponse(clone))
	}
}

func handleProjectCounts(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProjectIDs []string `json:"project_ids"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		experiments, err := projects.ExperimentCount(r.Context(), body.ProjectIDs)
		if err != nil {
			respondWithError(w, err)
			return
		}
		runs, err := projects.ExperimentRunCount(r.Context(), body.ProjectIDs)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]int64{
			"experiment_count":     experiments,
			"experiment_run_count": runs,
		})
	}
}

func handleWorkspaceProjects(projects server.ProjectsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := projects.WorkspaceIDs(r.Context(), mux.Vars(r)["workspace"])
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"project_ids": ids})
	}
}
