package node

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

const (
	DefaultEndpoint = "ws://127.0.0.1:8090"

	// the login api is always registered first on a fresh connection
	loginAPI = 1
)

var ErrLoginRejected = errors.New("login rejected")

// Client talks to a graphene node's websocket API. Every request is a
// json-rpc "call" of the form [api id, method, [args...]].
type Client struct {
	rpc      *rpc.Client
	endpoint string
	dbAPI    int
}

// Dial connects to endpoint, logs in and opens the database API.
func Dial(ctx context.Context, endpoint, user, password string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", endpoint)
	}

	c := &Client{rpc: rc, endpoint: endpoint}
	if err := c.login(ctx, user, password); err != nil {
		rc.Close()
		return nil, err
	}

	log.Info("Connected to node", "endpoint", endpoint, "database_api", c.dbAPI)

	return c, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) login(ctx context.Context, user, password string) error {
	var ok bool
	if err := c.call(ctx, loginAPI, "login", &ok, user, password); err != nil {
		return err
	}
	if !ok {
		return errors.WithMessagef(ErrLoginRejected, "%s as %q", c.endpoint, user)
	}

	var api int
	if err := c.call(ctx, loginAPI, "database", &api); err != nil {
		return err
	}
	c.dbAPI = api

	return nil
}

func (c *Client) call(ctx context.Context, api int, method string, result interface{}, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}

	log.Trace("Calling node", "api", api, "method", method)

	err := c.rpc.CallContext(ctx, result, "call", api, method, args)
	if err != nil {
		return errors.Wrapf(withErrorData(err), "unable to call %s", method)
	}

	return nil
}

// withErrorData appends the node's structured error detail, when present.
func withErrorData(err error) error {
	de, ok := err.(rpc.DataError)
	if !ok || de.ErrorData() == nil {
		return err
	}

	data, marshalErr := json.Marshal(de.ErrorData())
	if marshalErr != nil {
		return err
	}

	return errors.Errorf("%v: %s", err, data)
}
