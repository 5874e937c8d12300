package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ngoduongkha/genesis-snapshot/wallet"
)

// Graphene reserves the lowest account instances (committee, witness, null,
// temp, proxy-to-self ...); they are never bootstrap accounts.
const firstOrdinaryAccount = 6

// lifetimeMembershipExpiration is time_point_sec::maximum() as the node renders it.
const lifetimeMembershipExpiration = "2106-02-07T06:28:15"

// ObjectID is a graphene "space.type.instance" identifier such as 1.2.10.
type ObjectID struct {
	Space    uint8
	Type     uint8
	Instance uint64
}

func ParseObjectID(s string) (ObjectID, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return ObjectID{}, errors.Errorf("invalid object id %q", s)
	}

	space, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return ObjectID{}, errors.Wrapf(err, "invalid object id %q", s)
	}
	typ, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return ObjectID{}, errors.Wrapf(err, "invalid object id %q", s)
	}
	instance, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return ObjectID{}, errors.Wrapf(err, "invalid object id %q", s)
	}

	return ObjectID{Space: uint8(space), Type: uint8(typ), Instance: instance}, nil
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Space, id.Type, id.Instance)
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed

	return nil
}

// Amount is a share quantity. The node sends it either as a JSON number or,
// for values past 2^53, as a decimal string.
type Amount uint64

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		raw = raw[1 : len(raw)-1]
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid amount %s", data)
	}
	*a = Amount(v)

	return nil
}

// KeyWeight is one entry of an authority's key_auths, sent as [key, weight].
type KeyWeight struct {
	Key    wallet.PublicKey
	Weight uint16
}

func (kw *KeyWeight) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "key_auths entry")
	}
	if len(pair) != 2 {
		return errors.Errorf("key_auths entry has %d elements, want 2", len(pair))
	}

	if err := json.Unmarshal(pair[0], &kw.Key); err != nil {
		return err
	}

	return json.Unmarshal(pair[1], &kw.Weight)
}

func (kw KeyWeight) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{kw.Key, kw.Weight})
}

// Authority keeps key_auths in wire order; the other auth kinds are carried
// but never used for key selection.
type Authority struct {
	WeightThreshold uint32            `json:"weight_threshold"`
	AccountAuths    []json.RawMessage `json:"account_auths"`
	KeyAuths        []KeyWeight       `json:"key_auths"`
	AddressAuths    []json.RawMessage `json:"address_auths"`
}

type Account struct {
	ID                       ObjectID  `json:"id"`
	Name                     string    `json:"name"`
	Owner                    Authority `json:"owner"`
	Active                   Authority `json:"active"`
	MembershipExpirationDate string    `json:"membership_expiration_date"`
}

func (a Account) IsLifetimeMember() bool {
	return a.MembershipExpirationDate == lifetimeMembershipExpiration
}

// IsReserved reports whether a is one of the chain's special low-numbered accounts.
func (a Account) IsReserved() bool {
	return a.ID.Instance < firstOrdinaryAccount
}

type AccountBalance struct {
	ID        ObjectID `json:"id"`
	Owner     ObjectID `json:"owner"`
	AssetType ObjectID `json:"asset_type"`
	Balance   Amount   `json:"balance"`
}

// FullAccount is the subset of get_full_accounts output the builder reads.
type FullAccount struct {
	Account  Account          `json:"account"`
	Balances []AccountBalance `json:"balances"`
}

// NamedAccount pairs an account name with its full record, in lookup order.
type NamedAccount struct {
	Name    string
	Account FullAccount
}

func (na *NamedAccount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "full account entry")
	}
	if len(pair) != 2 {
		return errors.Errorf("full account entry has %d elements, want 2", len(pair))
	}

	if err := json.Unmarshal(pair[0], &na.Name); err != nil {
		return err
	}

	return errors.Wrapf(json.Unmarshal(pair[1], &na.Account), "full account %q", na.Name)
}

type Asset struct {
	ID        ObjectID `json:"id"`
	Symbol    string   `json:"symbol"`
	Precision uint8    `json:"precision"`
	Issuer    ObjectID `json:"issuer"`
}
