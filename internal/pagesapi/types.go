package pagesapi

import "time"

const (
	HeaderAuthEmail = "X-Auth-Email"
	HeaderAuthKey   = "X-Auth-Key"
)

// envelope is the body every v4 endpoint answers with.
type envelope[T any] struct {
	Success  bool      `json:"success"`
	Errors   []Message `json:"errors"`
	Messages []any     `json:"messages"`
	Result   T         `json:"result"`
}

// errorEnvelope is decoded for error statuses, the result is not needed.
type errorEnvelope struct {
	Success bool      `json:"success"`
	Errors  []Message `json:"errors"`
}

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Subdomain        string    `json:"subdomain"`
	ProductionBranch string    `json:"production_branch"`
	CreatedOn        time.Time `json:"created_on"`
}

type Deployment struct {
	ID          string `json:"id"`
	ShortID     string `json:"short_id"`
	ProjectName string `json:"project_name"`
	Environment string `json:"environment"`
	URL         string `json:"url"`
}

// NewDeployment describes a deployment of already uploaded assets.
type NewDeployment struct {
	Manifest      map[string]string
	Branch        string
	CommitMessage string
	CommitHash    string
}

type createProjectRequest struct {
	Name             string `json:"name"`
	ProductionBranch string `json:"production_branch"`
}

type uploadTokenResponse struct {
	JWT string `json:"jwt"`
}

type hashesRequest struct {
	Hashes []string `json:"hashes"`
}
