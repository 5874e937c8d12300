package database

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// AccountReader is the part of a node's database API a snapshot needs.
type AccountReader interface {
	AssetReader

	AccountCount(ctx context.Context) (uint64, error)
	// LookupAccountNames lists up to limit accounts by name, starting at
	// lowerBound inclusive.
	LookupAccountNames(ctx context.Context, lowerBound string, limit uint64) ([]AccountName, error)
	FullAccounts(ctx context.Context, names []string, subscribe bool) ([]NamedAccount, error)
}

type AssetReader interface {
	// Assets resolves ids in order; unknown ids come back as nil.
	Assets(ctx context.Context, ids []ObjectID) ([]*Asset, error)
}

// AccountName is one lookup_accounts result, sent as [name, id].
type AccountName struct {
	Name string
	ID   ObjectID
}

func (an *AccountName) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "account name entry")
	}
	if len(pair) != 2 {
		return errors.Errorf("account name entry has %d elements, want 2", len(pair))
	}

	if err := json.Unmarshal(pair[0], &an.Name); err != nil {
		return err
	}

	return json.Unmarshal(pair[1], &an.ID)
}

type CollectOptions struct {
	// LookupLimit is the page size for name enumeration. Zero means one page
	// holding every account.
	LookupLimit uint64
	// BatchSize caps the names sent per full account request. Zero sends all
	// names in a single request.
	BatchSize int
}

// CollectAccounts enumerates every account name on the node and fetches the
// full records, preserving lookup order.
func CollectAccounts(ctx context.Context, r AccountReader, opts CollectOptions) ([]NamedAccount, error) {
	count, err := r.AccountCount(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get_account_count")
	}
	if count == 0 {
		return nil, nil
	}

	names, err := lookupAllNames(ctx, r, count, opts.LookupLimit)
	if err != nil {
		return nil, err
	}

	batch := opts.BatchSize
	if batch <= 0 || batch > len(names) {
		batch = len(names)
	}

	accounts := make([]NamedAccount, 0, len(names))
	for start := 0; start < len(names); start += batch {
		end := start + batch
		if end > len(names) {
			end = len(names)
		}

		fetched, err := r.FullAccounts(ctx, names[start:end], false)
		if err != nil {
			return nil, errors.Wrap(err, "get_full_accounts")
		}
		accounts = append(accounts, fetched...)
	}

	return accounts, nil
}

func lookupAllNames(ctx context.Context, r AccountReader, count, limit uint64) ([]string, error) {
	if limit == 0 || limit >= count {
		limit = count
	} else if limit < 2 {
		// a page of one only ever returns its own lower bound
		limit = 2
	}

	names := make([]string, 0, count)
	lowerBound := ""
	for {
		page, err := r.LookupAccountNames(ctx, lowerBound, limit)
		if err != nil {
			return nil, errors.Wrap(err, "lookup_accounts")
		}
		full := uint64(len(page)) >= limit

		if lowerBound != "" && len(page) > 0 && page[0].Name == lowerBound {
			page = page[1:]
		}
		for _, entry := range page {
			names = append(names, entry.Name)
		}

		if !full || len(page) == 0 || uint64(len(names)) >= count {
			return names, nil
		}
		lowerBound = page[len(page)-1].Name
	}
}
