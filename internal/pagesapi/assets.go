package pagesapi

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imroc/req/v3"
	"github.com/openmined/pagesync/internal/assets"
)

const (
	v4AssetsCheckMissing = "/pages/assets/check-missing"
	v4AssetsUpload       = "/pages/assets/upload"
	v4AssetsUpsertHashes = "/pages/assets/upsert-hashes"
)

// AssetsAPI is the content addressed asset store of one project
type AssetsAPI struct {
	client    *req.Client
	projects  *ProjectsAPI
	accountID string
	project   string
}

var _ assets.Oracle = (*AssetsAPI)(nil)

// UploadCredential fetches a fresh upload token. Its expiry is read from
// the token's claims; the signature is the server's business.
func (a *AssetsAPI) UploadCredential(ctx context.Context) (*assets.Credential, error) {
	token, err := a.projects.UploadToken(ctx, a.accountID, a.project)
	if err != nil {
		return nil, err
	}
	return &assets.Credential{Token: token, ExpiresAt: tokenExpiry(token)}, nil
}

// CheckMissing returns the subset of hashes the store does not hold
func (a *AssetsAPI) CheckMissing(ctx context.Context, cred *assets.Credential, hashes []string) ([]string, error) {
	var env envelope[[]string]

	resp, err := a.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.Token).
		SetBody(&hashesRequest{Hashes: hashes}).
		SetSuccessResult(&env).
		Post(v4AssetsCheckMissing)

	if err := handleAPIError(resp, err, "check missing"); err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, env.Success, env.Errors, "check missing"); err != nil {
		return nil, err
	}

	return env.Result, nil
}

// UploadBatch stores one bucket. Retries are left to the caller.
func (a *AssetsAPI) UploadBatch(ctx context.Context, cred *assets.Credential, batch []*assets.UploadPayload) error {
	var env envelope[any]

	resp, err := a.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.Token).
		SetBody(batch).
		SetRetryCount(0).
		SetSuccessResult(&env).
		Post(v4AssetsUpload)

	if err := handleAPIError(resp, err, "upload"); err != nil {
		return err
	}
	return checkEnvelope(resp, env.Success, env.Errors, "upload")
}

// CommitHashes marks hashes as belonging to the project
func (a *AssetsAPI) CommitHashes(ctx context.Context, cred *assets.Credential, hashes []string) error {
	var env envelope[any]

	resp, err := a.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.Token).
		SetBody(&hashesRequest{Hashes: hashes}).
		SetSuccessResult(&env).
		Post(v4AssetsUpsertHashes)

	if err := handleAPIError(resp, err, "upsert hashes"); err != nil {
		return err
	}
	return checkEnvelope(resp, env.Success, env.Errors, "upsert hashes")
}

// tokenExpiry returns the exp claim, or the zero time when the token
// cannot be read or carries none.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
