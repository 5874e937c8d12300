package database

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ngoduongkha/genesis-snapshot/wallet"
)

var (
	ErrEmptyAuthority = errors.New("authority has no key")
	ErrUnknownAsset   = errors.New("unknown asset")
)

// BuildConfig is fixed for the lifetime of a Builder.
type BuildConfig struct {
	// Append keeps the accounts and balances already in the genesis.
	Append bool
	// Debug echoes every emitted account and balance to DebugOut.
	Debug    bool
	DebugOut io.Writer

	Collect CollectOptions
}

type BuildStats struct {
	Seen     int
	Reserved int
	Accounts int
	Balances int
}

// Builder turns remote account records into genesis accounts and balances.
type Builder struct {
	assets AssetReader
	cfg    BuildConfig

	symbols map[ObjectID]string
}

func NewBuilder(assets AssetReader, cfg BuildConfig) *Builder {
	if cfg.Debug && cfg.DebugOut == nil {
		cfg.DebugOut = os.Stdout
	}

	return &Builder{
		assets:  assets,
		cfg:     cfg,
		symbols: make(map[ObjectID]string),
	}
}

// ExtractRepresentativeKey returns the first key of the authority's key_auths.
// Only single key authorities are represented faithfully: thresholds, weights,
// further keys and account or address auths are dropped without notice.
func ExtractRepresentativeKey(auth Authority) (wallet.PublicKey, error) {
	if len(auth.KeyAuths) == 0 {
		return wallet.PublicKey{}, ErrEmptyAuthority
	}

	return auth.KeyAuths[0].Key, nil
}

// Build appends one initial account per ordinary account and one initial
// balance per non-zero balance it holds. Entries are not deduplicated against
// what g already contains. On error g is left unchanged.
func (b *Builder) Build(ctx context.Context, g *Genesis, accounts []NamedAccount) (BuildStats, error) {
	var (
		stats       BuildStats
		newAccounts []InitialAccount
		newBalances []InitialBalance
	)

	for _, named := range accounts {
		stats.Seen++

		acc := named.Account.Account
		if acc.IsReserved() {
			stats.Reserved++
			continue
		}

		ownerKey, err := ExtractRepresentativeKey(acc.Owner)
		if err != nil {
			return BuildStats{}, errors.Wrapf(err, "account %q (%s) owner", named.Name, acc.ID)
		}
		activeKey, err := ExtractRepresentativeKey(acc.Active)
		if err != nil {
			return BuildStats{}, errors.Wrapf(err, "account %q (%s) active", named.Name, acc.ID)
		}

		initAccount := InitialAccount{
			Name:             named.Name,
			OwnerKey:         ownerKey,
			ActiveKey:        activeKey,
			IsLifetimeMember: acc.IsLifetimeMember(),
		}
		newAccounts = append(newAccounts, initAccount)
		b.traceAccount(initAccount)

		owner := wallet.AddressFromKey(ownerKey)
		for _, balance := range named.Account.Balances {
			if balance.Balance == 0 {
				continue
			}

			symbol, err := b.assetSymbol(ctx, balance.AssetType)
			if err != nil {
				return BuildStats{}, errors.WithMessagef(err, "account %q balance", named.Name)
			}

			initBalance := InitialBalance{
				Owner:       owner,
				AssetSymbol: symbol,
				Amount:      balance.Balance,
			}
			newBalances = append(newBalances, initBalance)
			b.traceBalance(initBalance)
		}

		b.trace("\n\n\n")
	}

	g.InitialAccounts = append(g.InitialAccounts, newAccounts...)
	g.InitialBalances = append(g.InitialBalances, newBalances...)

	stats.Accounts = len(newAccounts)
	stats.Balances = len(newBalances)

	return stats, nil
}

func (b *Builder) assetSymbol(ctx context.Context, id ObjectID) (string, error) {
	if symbol, ok := b.symbols[id]; ok {
		return symbol, nil
	}

	assets, err := b.assets.Assets(ctx, []ObjectID{id})
	if err != nil {
		return "", errors.Wrapf(err, "get_assets %s", id)
	}
	if len(assets) == 0 || assets[0] == nil {
		return "", errors.WithMessage(ErrUnknownAsset, id.String())
	}

	b.symbols[id] = assets[0].Symbol

	return assets[0].Symbol, nil
}

func (b *Builder) traceAccount(a InitialAccount) {
	b.trace("%s\nowner_key: %s\nactive_key: %s\nis life member: %t\n",
		a.Name, a.OwnerKey, a.ActiveKey, a.IsLifetimeMember)
}

func (b *Builder) traceBalance(ib InitialBalance) {
	b.trace("address: %s\nasset_symbol: %s\namount: %d\n", ib.Owner, ib.AssetSymbol, ib.Amount)
}

func (b *Builder) trace(format string, args ...interface{}) {
	if !b.cfg.Debug {
		return
	}

	_, _ = fmt.Fprintf(b.cfg.DebugOut, format, args...)
}

// Rebuild runs one snapshot pass: reset or keep the existing entries, read
// every account from r and build the new entries into g.
func Rebuild(ctx context.Context, g *Genesis, r AccountReader, cfg BuildConfig) (BuildStats, error) {
	accounts, err := CollectAccounts(ctx, r, cfg.Collect)
	if err != nil {
		return BuildStats{}, err
	}

	g.PrepareForRebuild(cfg.Append)

	return NewBuilder(r, cfg).Build(ctx, g, accounts)
}
