package pagesapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/imroc/req/v3"
)

const (
	v4Accounts = "/accounts"
)

type AccountsAPI struct {
	client *req.Client
}

// List returns the accounts visible to the credentials
func (a *AccountsAPI) List(ctx context.Context) ([]*Account, error) {
	var env envelope[[]*Account]

	resp, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&env).
		Get(v4Accounts)

	if err := handleAPIError(resp, err, "list accounts"); err != nil {
		return nil, err
	}
	if err := checkEnvelope(resp, env.Success, env.Errors, "list accounts"); err != nil {
		return nil, err
	}

	return env.Result, nil
}

// FindByEmail returns the first account whose name starts with email,
// ignoring case. Accounts are named after their owner's email by default.
func (a *AccountsAPI) FindByEmail(ctx context.Context, email string) (*Account, error) {
	accounts, err := a.List(ctx)
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(email)
	for _, account := range accounts {
		if strings.HasPrefix(strings.ToLower(account.Name), prefix) {
			return account, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, email)
}
