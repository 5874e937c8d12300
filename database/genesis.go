package database

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/ngoduongkha/genesis-snapshot/wallet"
)

const (
	initialAccountsKey = "initial_accounts"
	initialBalancesKey = "initial_balances"
)

var ErrGenesisNotFound = errors.New("genesis json does not exist")

type InitialAccount struct {
	Name             string           `json:"name"`
	OwnerKey         wallet.PublicKey `json:"owner_key"`
	ActiveKey        wallet.PublicKey `json:"active_key"`
	IsLifetimeMember bool             `json:"is_lifetime_member"`
}

type InitialBalance struct {
	Owner       wallet.Address `json:"owner"`
	AssetSymbol string         `json:"asset_symbol"`
	Amount      Amount         `json:"amount"`
}

// Genesis is a genesis document. Only the initial account and balance lists
// are decoded; everything else stays in raw and is written back untouched.
type Genesis struct {
	InitialAccounts []InitialAccount
	InitialBalances []InitialBalance

	raw []byte
}

func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.WithMessage(ErrGenesisNotFound, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read genesis json %s", path)
	}

	g, err := ParseGenesis(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}

	return g, nil
}

func ParseGenesis(data []byte) (*Genesis, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, errors.New("genesis json is not a json object")
	}

	g := &Genesis{raw: append([]byte(nil), data...)}

	if err := decodeList(data, initialAccountsKey, &g.InitialAccounts); err != nil {
		return nil, err
	}
	if err := decodeList(data, initialBalancesKey, &g.InitialBalances); err != nil {
		return nil, err
	}

	return g, nil
}

// PrepareForRebuild drops the previous accounts and balances unless appendMode
// is set, in which case new entries are added after the existing ones.
func (g *Genesis) PrepareForRebuild(appendMode bool) {
	if appendMode {
		return
	}

	g.InitialAccounts = nil
	g.InitialBalances = nil
}

// Field reads an untouched part of the document, e.g. "initial_parameters".
func (g *Genesis) Field(path string) gjson.Result {
	return gjson.GetBytes(g.raw, path)
}

// Bytes renders the document with the current account and balance lists
// spliced into the original JSON.
func (g *Genesis) Bytes() ([]byte, error) {
	accounts := g.InitialAccounts
	if accounts == nil {
		accounts = []InitialAccount{}
	}
	balances := g.InitialBalances
	if balances == nil {
		balances = []InitialBalance{}
	}

	out, err := spliceList(append([]byte(nil), g.raw...), initialAccountsKey, accounts)
	if err != nil {
		return nil, err
	}

	return spliceList(out, initialBalancesKey, balances)
}

// Save overwrites path with the document.
func (g *Genesis) Save(path string) error {
	data, err := g.Bytes()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "unable to write genesis json %s", path)
	}

	return nil
}

func decodeList(data []byte, key string, into interface{}) error {
	field := gjson.GetBytes(data, key)
	if !field.Exists() || field.Type == gjson.Null {
		return nil
	}
	if !field.IsArray() {
		return errors.Errorf("genesis json %s is not an array", key)
	}

	return errors.Wrapf(json.Unmarshal([]byte(field.Raw), into), "unable to decode genesis json %s", key)
}

func spliceList(data []byte, key string, list interface{}) ([]byte, error) {
	encoded, err := json.Marshal(list)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to encode genesis json %s", key)
	}

	out, err := sjson.SetRawBytes(data, key, encoded)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to update genesis json %s", key)
	}

	return out, nil
}
