// Package nodetest serves a fake graphene node over a websocket for tests.
package nodetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

const (
	LoginAPI    = 1
	DatabaseAPI = 2

	lifetimeExpiration = "2106-02-07T06:28:15"
	neverMember        = "1970-01-01T00:00:00"
)

type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Handler answers one database API method.
type Handler func(args []json.RawMessage) (interface{}, *Error)

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

type Balance struct {
	AssetID string
	Amount  interface{}
}

// Server keeps an account and asset set and answers login, database and
// the database API methods the snapshot uses. Handlers override defaults.
type Server struct {
	User     string
	Password string
	Handlers map[string]Handler

	mu       sync.Mutex
	calls    []string
	accounts map[string]json.RawMessage
	ids      map[string]string
	assets   map[string]json.RawMessage
}

func NewServer() *Server {
	return &Server{
		Handlers: make(map[string]Handler),
		accounts: make(map[string]json.RawMessage),
		ids:      make(map[string]string),
		assets:   make(map[string]json.RawMessage),
	}
}

// Start serves s until the test ends and returns its ws:// endpoint.
func (s *Server) Start(t testing.TB) string {
	t.Helper()

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// Calls lists the method names received so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.calls...)
}

// AddAccount registers an account whose owner and active authorities each
// hold a single key.
func (s *Server) AddAccount(id, name, ownerKey, activeKey string, lifetime bool, balances ...Balance) {
	expiration := neverMember
	if lifetime {
		expiration = lifetimeExpiration
	}

	bals := make([]map[string]interface{}, 0, len(balances))
	for i, b := range balances {
		bals = append(bals, map[string]interface{}{
			"id":         "2.5." + strings.Repeat("9", i+1),
			"owner":      id,
			"asset_type": b.AssetID,
			"balance":    b.Amount,
		})
	}

	authority := func(key string) map[string]interface{} {
		return map[string]interface{}{
			"weight_threshold": 1,
			"account_auths":    []interface{}{},
			"key_auths":        [][]interface{}{{key, 1}},
			"address_auths":    []interface{}{},
		}
	}

	full, _ := json.Marshal(map[string]interface{}{
		"account": map[string]interface{}{
			"id":                         id,
			"name":                       name,
			"membership_expiration_date": expiration,
			"owner":                      authority(ownerKey),
			"active":                     authority(activeKey),
		},
		"balances": bals,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[name] = full
	s.ids[name] = id
}

func (s *Server) AddAsset(id, symbol string) {
	asset, _ := json.Marshal(map[string]interface{}{
		"id":        id,
		"symbol":    symbol,
		"precision": 5,
		"issuer":    "1.2.1",
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[id] = asset
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		resp := response{JSONRPC: "2.0", ID: req.ID}
		resp.Result, resp.Error = s.handle(req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) handle(req request) (interface{}, *Error) {
	if req.Method != "call" || len(req.Params) != 3 {
		return nil, &Error{Code: -32601, Message: "method not found"}
	}

	var (
		api    int
		method string
		args   []json.RawMessage
	)
	if json.Unmarshal(req.Params[0], &api) != nil ||
		json.Unmarshal(req.Params[1], &method) != nil ||
		json.Unmarshal(req.Params[2], &args) != nil {
		return nil, &Error{Code: -32602, Message: "invalid params"}
	}

	s.mu.Lock()
	s.calls = append(s.calls, method)
	s.mu.Unlock()

	switch api {
	case LoginAPI:
		return s.login(method, args)
	case DatabaseAPI:
		if h, ok := s.Handlers[method]; ok {
			return h(args)
		}
		return s.database(method, args)
	}

	return nil, unknown(method)
}

func (s *Server) login(method string, args []json.RawMessage) (interface{}, *Error) {
	switch method {
	case "login":
		var user, password string
		if len(args) != 2 || json.Unmarshal(args[0], &user) != nil || json.Unmarshal(args[1], &password) != nil {
			return nil, &Error{Code: 1, Message: "login expects user and password"}
		}
		return user == s.User && password == s.Password, nil
	case "database":
		return DatabaseAPI, nil
	}

	return nil, unknown(method)
}

func (s *Server) database(method string, args []json.RawMessage) (interface{}, *Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch method {
	case "get_account_count":
		return len(s.accounts), nil

	case "lookup_accounts":
		var (
			lowerBound string
			limit      int
		)
		if len(args) != 2 || json.Unmarshal(args[0], &lowerBound) != nil || json.Unmarshal(args[1], &limit) != nil {
			return nil, &Error{Code: 1, Message: "lookup_accounts expects lower bound and limit"}
		}

		names := make([]string, 0, len(s.ids))
		for name := range s.ids {
			if name >= lowerBound {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if len(names) > limit {
			names = names[:limit]
		}

		out := make([][]string, 0, len(names))
		for _, name := range names {
			out = append(out, []string{name, s.ids[name]})
		}
		return out, nil

	case "get_full_accounts":
		var names []string
		if len(args) != 2 || json.Unmarshal(args[0], &names) != nil {
			return nil, &Error{Code: 1, Message: "get_full_accounts expects names and subscribe"}
		}

		out := make([][]interface{}, 0, len(names))
		for _, name := range names {
			if full, ok := s.accounts[name]; ok {
				out = append(out, []interface{}{name, full})
			}
		}
		return out, nil

	case "get_assets":
		var ids []string
		if len(args) != 1 || json.Unmarshal(args[0], &ids) != nil {
			return nil, &Error{Code: 1, Message: "get_assets expects ids"}
		}

		out := make([]interface{}, len(ids))
		for i, id := range ids {
			if asset, ok := s.assets[id]; ok {
				out[i] = asset
			}
		}
		return out, nil
	}

	return nil, unknown(method)
}

func unknown(method string) *Error {
	return &Error{Code: 1, Message: "Assert Exception: unknown method " + method}
}
