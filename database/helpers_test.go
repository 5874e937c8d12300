package database

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ngoduongkha/genesis-snapshot/wallet"
)

const (
	keyNathan    = "BTS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV"
	keyGenerator = "BTS5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bu"
	keyDouble    = "BTS6PhSs6H49U1Lb6vz9GDtUF9RjtpFpkS6Rxm94LumQrnD1YqfSG"
	keyTriple    = "BTS6nEZsuNhDnknxVTf1YH454nxiB5MpVSN7gQktMRioqRiAXfJpk"
	keyNull      = "BTS1111111111111111111111111111111114T1Anm"

	// checksummed, but 0x02 || x=5 is not a curve point
	keyOffCurve = "BTS4tVMTu4hrMTGeAQpAEzueCYqEESJQgkaH9DVJNnzK1mztsYYww"

	addrNathan = "BTSFAbAx7yuxt725qSZvfwWqkdCwp9ZnUama"
	addrDouble = "BTS72C1yZyh1oTMqQeGfju6NY1vWXorq52Rk"
	addrNull   = "BTSHFAvYUeB2D8NAcWUUwXDgfdg1uau3ogf3"

	addrOffCurve = "BTSGrsX3kHKczQNit6FTTepMrgdufs5PN6PN"
)

var (
	coreAsset = &Asset{ID: ObjectID{1, 3, 0}, Symbol: "CORE", Precision: 5}
	usdAsset  = &Asset{ID: ObjectID{1, 3, 121}, Symbol: "USD", Precision: 4}
)

func mustKey(t *testing.T, s string) wallet.PublicKey {
	t.Helper()

	k, err := wallet.ParsePublicKey(s)
	require.NoError(t, err)

	return k
}

func singleKey(t *testing.T, s string) Authority {
	return Authority{WeightThreshold: 1, KeyAuths: []KeyWeight{{Key: mustKey(t, s), Weight: 1}}}
}

func newAccount(t *testing.T, name string, instance uint64, owner, active string, balances ...AccountBalance) NamedAccount {
	t.Helper()

	return NamedAccount{
		Name: name,
		Account: FullAccount{
			Account: Account{
				ID:                       ObjectID{1, 2, instance},
				Name:                     name,
				Owner:                    singleKey(t, owner),
				Active:                   singleKey(t, active),
				MembershipExpirationDate: "1970-01-01T00:00:00",
			},
			Balances: balances,
		},
	}
}

func balanceOf(asset *Asset, amount Amount) AccountBalance {
	return AccountBalance{AssetType: asset.ID, Balance: amount}
}

// memNode serves accounts the way a node's database API does: names sorted,
// lower bound inclusive.
type memNode struct {
	accounts []NamedAccount
	assets   map[ObjectID]*Asset

	lookups    []uint64
	fullCalls  [][]string
	assetCalls int
}

func newMemNode(accounts ...NamedAccount) *memNode {
	sorted := append([]NamedAccount(nil), accounts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return &memNode{
		accounts: sorted,
		assets: map[ObjectID]*Asset{
			coreAsset.ID: coreAsset,
			usdAsset.ID:  usdAsset,
		},
	}
}

func (n *memNode) AccountCount(context.Context) (uint64, error) {
	return uint64(len(n.accounts)), nil
}

func (n *memNode) LookupAccountNames(_ context.Context, lowerBound string, limit uint64) ([]AccountName, error) {
	n.lookups = append(n.lookups, limit)

	var out []AccountName
	for _, a := range n.accounts {
		if uint64(len(out)) >= limit {
			break
		}
		if a.Name < lowerBound {
			continue
		}
		out = append(out, AccountName{Name: a.Name, ID: a.Account.Account.ID})
	}

	return out, nil
}

func (n *memNode) FullAccounts(_ context.Context, names []string, _ bool) ([]NamedAccount, error) {
	n.fullCalls = append(n.fullCalls, append([]string(nil), names...))

	var out []NamedAccount
	for _, name := range names {
		for _, a := range n.accounts {
			if a.Name == name {
				out = append(out, a)
			}
		}
	}

	return out, nil
}

func (n *memNode) Assets(_ context.Context, ids []ObjectID) ([]*Asset, error) {
	n.assetCalls++

	out := make([]*Asset, len(ids))
	for i, id := range ids {
		out[i] = n.assets[id]
	}

	return out, nil
}
