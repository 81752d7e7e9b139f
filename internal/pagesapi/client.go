package pagesapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/pagesync/internal/version"
)

// Client is the entry point to the pages API
type Client struct {
	client      *req.Client // account authenticated
	assets      *req.Client // upload token only
	Accounts    *AccountsAPI
	Projects    *ProjectsAPI
	Deployments *DeploymentsAPI
}

// New creates a client. Zero values in cfg take the package defaults.
func New(cfg *Config) (*Client, error) {
	conf := cfg.withDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	base := req.C().
		SetBaseURL(conf.BaseURL).
		SetTimeout(conf.Timeout).
		SetUserAgent(version.UserAgent()).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		SetCommonErrorResult(&errorEnvelope{}).
		SetCommonRetryCount(conf.RetryCount).
		SetCommonRetryBackoffInterval(500*time.Millisecond, 4*time.Second).
		SetCommonRetryCondition(shouldRetry)

	client := base.Clone()
	if conf.APIToken != "" {
		client.SetCommonBearerAuthToken(conf.APIToken)
	} else {
		client.SetCommonHeaders(map[string]string{
			HeaderAuthEmail: conf.Email,
			HeaderAuthKey:   conf.APIKey,
		})
	}

	return &Client{
		client:      client,
		assets:      base,
		Accounts:    &AccountsAPI{client: client},
		Projects:    &ProjectsAPI{client: client},
		Deployments: &DeploymentsAPI{client: client},
	}, nil
}

// Assets returns the asset store of one project. It authenticates with
// the project's short lived upload token.
func (c *Client) Assets(accountID, project string) *AssetsAPI {
	return &AssetsAPI{
		client:    c.assets,
		projects:  c.Projects,
		accountID: accountID,
		project:   project,
	}
}

func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}
