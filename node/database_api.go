package node

import (
	"context"

	"github.com/ngoduongkha/genesis-snapshot/database"
)

var _ database.AccountReader = (*Client)(nil)

func (c *Client) AccountCount(ctx context.Context) (uint64, error) {
	var count database.Amount
	if err := c.call(ctx, c.dbAPI, "get_account_count", &count); err != nil {
		return 0, err
	}

	return uint64(count), nil
}

func (c *Client) LookupAccountNames(ctx context.Context, lowerBound string, limit uint64) ([]database.AccountName, error) {
	var names []database.AccountName
	if err := c.call(ctx, c.dbAPI, "lookup_accounts", &names, lowerBound, limit); err != nil {
		return nil, err
	}

	return names, nil
}

func (c *Client) FullAccounts(ctx context.Context, names []string, subscribe bool) ([]database.NamedAccount, error) {
	var accounts []database.NamedAccount
	if err := c.call(ctx, c.dbAPI, "get_full_accounts", &accounts, names, subscribe); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (c *Client) Assets(ctx context.Context, ids []database.ObjectID) ([]*database.Asset, error) {
	var assets []*database.Asset
	if err := c.call(ctx, c.dbAPI, "get_assets", &assets, ids); err != nil {
		return nil, err
	}

	return assets, nil
}
