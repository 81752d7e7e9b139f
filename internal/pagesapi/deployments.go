package pagesapi

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

const (
	v4Deployments = "/accounts/{account_id}/pages/projects/{project_name}/deployments"
	defaultBranch = "main"
)

type DeploymentsAPI struct {
	client *req.Client
}

// Create publishes a deployment built from assets that were already
// uploaded and committed. The request is a multipart form.
func (d *DeploymentsAPI) Create(ctx context.Context, accountID, project string, params *NewDeployment) (*Deployment, error) {
	if err := checkProjectArgs(accountID, project); err != nil {
		return nil, err
	}

	manifest := params.Manifest
	if manifest == nil {
		manifest = map[string]string{}
	}
	manifestJSON, err := jsonMarshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	branch := params.Branch
	if branch == "" {
		branch = defaultBranch
	}

	form := map[string]string{
		"manifest": string(manifestJSON),
		"branch":   branch,
	}
	if params.CommitMessage != "" {
		form["commit_message"] = params.CommitMessage
	}
	if params.CommitHash != "" {
		form["commit_hash"] = params.CommitHash
	}

	var env envelope[*Deployment]
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("account_id", accountID).
		SetPathParam("project_name", project).
		SetFormData(form).
		EnableForceMultipart().
		SetRetryCount(0).
		SetSuccessResult(&env).
		Post(v4Deployments)

	if err := handleAPIError(resp, err, "create deployment"); err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, env.Success, env.Errors, "create deployment"); err != nil {
		return nil, err
	}

	return env.Result, nil
}
