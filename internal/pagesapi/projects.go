package pagesapi

import (
	"context"

	"github.com/imroc/req/v3"
)

const (
	v4Projects    = "/accounts/{account_id}/pages/projects"
	v4Project     = "/accounts/{account_id}/pages/projects/{project_name}"
	v4UploadToken = "/accounts/{account_id}/pages/projects/{project_name}/upload-token"
)

type ProjectsAPI struct {
	client *req.Client
}

// Get fetches a project. An unknown project yields an error for which
// IsNotFound is true.
func (p *ProjectsAPI) Get(ctx context.Context, accountID, name string) (*Project, error) {
	if err := checkProjectArgs(accountID, name); err != nil {
		return nil, err
	}

	var env envelope[*Project]
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("account_id", accountID).
		SetPathParam("project_name", name).
		SetSuccessResult(&env).
		Get(v4Project)

	if err := handleAPIError(resp, err, "get project"); err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, env.Success, env.Errors, "get project"); err != nil {
		return nil, err
	}

	return env.Result, nil
}

// Create creates a project deploying productionBranch to production
func (p *ProjectsAPI) Create(ctx context.Context, accountID, name, productionBranch string) (*Project, error) {
	if err := checkProjectArgs(accountID, name); err != nil {
		return nil, err
	}

	var env envelope[*Project]
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("account_id", accountID).
		SetBody(&createProjectRequest{
			Name:             name,
			ProductionBranch: productionBranch,
		}).
		SetRetryCount(0).
		SetSuccessResult(&env).
		Post(v4Projects)

	if err := handleAPIError(resp, err, "create project"); err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, env.Success, env.Errors, "create project"); err != nil {
		return nil, err
	}

	return env.Result, nil
}

// UploadToken issues the short lived JWT the asset endpoints accept
func (p *ProjectsAPI) UploadToken(ctx context.Context, accountID, name string) (string, error) {
	if err := checkProjectArgs(accountID, name); err != nil {
		return "", err
	}

	var env envelope[*uploadTokenResponse]
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("account_id", accountID).
		SetPathParam("project_name", name).
		SetSuccessResult(&env).
		Get(v4UploadToken)

	if err := handleAPIError(resp, err, "upload token"); err != nil {
		return "", err
	}
	if err := checkEnvelope(resp, env.Success, env.Errors, "upload token"); err != nil {
		return "", err
	}
	if env.Result == nil || env.Result.JWT == "" {
		return "", ErrEmptyToken
	}

	return env.Result.JWT, nil
}

func checkProjectArgs(accountID, name string) error {
	if accountID == "" {
		return ErrNoAccountID
	}
	if name == "" {
		return ErrNoProjectName
	}
	return nil
}
