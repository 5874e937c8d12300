package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/ngoduongkha/genesis-snapshot/database"
	"github.com/ngoduongkha/genesis-snapshot/node"
	"github.com/ngoduongkha/genesis-snapshot/node/nodetest"
)

const (
	ownerKey  = "BTS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV"
	activeKey = "BTS5p78kHbL33Rn3JWkTWRE2B9uz6gy4r1KbfAKLNQGE3ovMBS5bu"
	ownerAddr = "BTSFAbAx7yuxt725qSZvfwWqkdCwp9ZnUama"

	seed = `{
  "initial_timestamp": "2015-10-13T14:12:24",
  "initial_parameters": {"block_interval": 5, "maintenance_interval": 86400},
  "initial_accounts": [],
  "initial_balances": [],
  "initial_chain_id": "X"
}`
)

func newChain() *nodetest.Server {
	s := nodetest.NewServer()
	s.User, s.Password = "user", "secret"
	s.AddAsset("1.3.0", "CORE")
	s.AddAccount("1.2.3", "temp-account", ownerKey, ownerKey, false,
		nodetest.Balance{AssetID: "1.3.0", Amount: 10})
	s.AddAccount("1.2.10", "alice", ownerKey, activeKey, true,
		nodetest.Balance{AssetID: "1.3.0", Amount: 500})

	return s
}

func execute(t *testing.T, stdout io.Writer, args ...string) error {
	t.Helper()

	if args == nil {
		args = []string{}
	}

	cmd := rootCmd(stdout)
	cmd.SetArgs(args)

	return cmd.Execute()
}

func writeSeed(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	return path
}

func TestLoadConfigFromFlags(t *testing.T) {
	cmd := rootCmd(io.Discard)
	require.NoError(t, cmd.ParseFlags([]string{"-g", "in.json", "-o", "out.json", "-u", "user", "-p", "pw", "-a", "--batch-size", "7"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.Equal(t, Config{
		GenesisPath: "in.json",
		OutputPath:  "out.json",
		Endpoint:    node.DefaultEndpoint,
		User:        "user",
		Password:    "pw",
		Append:      true,
		LookupLimit: 1000,
		BatchSize:   7,
		Verbosity:   3,
	}, cfg)

	require.Equal(t, database.BuildConfig{
		Append:  true,
		Collect: database.CollectOptions{LookupLimit: 1000, BatchSize: 7},
	}, cfg.buildConfig())
}

func TestLoadConfigDefaults(t *testing.T) {
	cmd := rootCmd(io.Discard)
	require.NoError(t, cmd.ParseFlags([]string{"-g", "in.json", "-o", "out.json"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), cfg.LookupLimit)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, node.DefaultEndpoint, cfg.Endpoint)
}

func TestLoadConfigFromEnvAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "genesisgen.yaml")
	require.NoError(t, os.WriteFile(file, []byte("output-json-path: from-file.json\nlookup-limit: 50\n"), 0644))
	t.Setenv("GENESISGEN_SERVER_RPC_USER", "env-user")

	cmd := rootCmd(io.Discard)
	require.NoError(t, cmd.ParseFlags([]string{"-g", "in.json", "--config", file}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "in.json", cfg.GenesisPath)
	assert.Equal(t, "from-file.json", cfg.OutputPath)
	assert.Equal(t, "env-user", cfg.User)
	assert.Equal(t, uint64(50), cfg.LookupLimit)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{GenesisPath: "in", OutputPath: "out", Endpoint: node.DefaultEndpoint, Verbosity: 3}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		errText string
	}{
		{name: "no genesis", mutate: func(c *Config) { c.GenesisPath = "" }, errText: "--genesis-json-path is required"},
		{name: "no output", mutate: func(c *Config) { c.OutputPath = "" }, errText: "--output-json-path is required"},
		{name: "no endpoint", mutate: func(c *Config) { c.Endpoint = "" }, errText: "--server-rpc-endpoint must not be empty"},
		{name: "negative batch", mutate: func(c *Config) { c.BatchSize = -1 }, errText: "--batch-size cannot be negative"},
		{name: "verbosity", mutate: func(c *Config) { c.Verbosity = 6 }, errText: "--verbosity must be between 0 and 5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			require.EqualError(t, cfg.Validate(), tc.errText)
		})
	}
}

func TestNoFlagsPrintsHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(t, &out))
	require.Contains(t, out.String(), "--genesis-json-path")
}

func TestMissingSeedAbortsBeforeNode(t *testing.T) {
	s := newChain()
	dir := t.TempDir()
	output := filepath.Join(dir, "out.json")

	err := execute(t, io.Discard,
		"-g", filepath.Join(dir, "missing.json"),
		"-o", output,
		"-s", s.Start(t))
	require.ErrorIs(t, err, database.ErrGenesisNotFound)
	require.Contains(t, err.Error(), "missing.json")

	require.Empty(t, s.Calls())
	_, statErr := os.Stat(output)
	require.True(t, os.IsNotExist(statErr))
}

func TestRemoteFailureLeavesOutputUntouched(t *testing.T) {
	s := newChain()
	input := writeSeed(t)
	output := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(output, []byte("previous"), 0644))

	err := execute(t, io.Discard, "-g", input, "-o", output, "-s", s.Start(t), "-u", "user", "-p", "wrong")
	require.ErrorIs(t, err, node.ErrLoginRejected)

	data, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	require.Equal(t, "previous", string(data))
}

func TestSnapshot(t *testing.T) {
	s := newChain()
	endpoint := s.Start(t)
	input := writeSeed(t)
	output := filepath.Join(t.TempDir(), "out.json")

	var stdout bytes.Buffer
	require.NoError(t, execute(t, &stdout, "-g", input, "-o", output, "-s", endpoint, "-u", "user", "-p", "secret"))
	require.Zero(t, stdout.Len())

	out, err := os.ReadFile(output)
	require.NoError(t, err)

	for _, key := range []string{"initial_timestamp", "initial_parameters", "initial_chain_id"} {
		assert.Equal(t, gjson.Get(seed, key).Raw, gjson.GetBytes(out, key).Raw, key)
	}

	accounts := gjson.GetBytes(out, "initial_accounts").Array()
	require.Len(t, accounts, 1)
	assert.JSONEq(t, `{"name":"alice","owner_key":"`+ownerKey+`","active_key":"`+activeKey+`","is_lifetime_member":true}`, accounts[0].Raw)

	balances := gjson.GetBytes(out, "initial_balances").Array()
	require.Len(t, balances, 1)
	assert.JSONEq(t, `{"owner":"`+ownerAddr+`","asset_symbol":"CORE","amount":500}`, balances[0].Raw)

	// rebuilding from the output without append gives the same document
	again := filepath.Join(t.TempDir(), "again.json")
	require.NoError(t, execute(t, io.Discard, "-g", output, "-o", again, "-s", endpoint, "-u", "user", "-p", "secret"))
	rebuilt, err := os.ReadFile(again)
	require.NoError(t, err)
	require.Equal(t, string(out), string(rebuilt))

	// append keeps the previous entries and adds the new ones after them
	require.NoError(t, execute(t, io.Discard, "-g", output, "-o", again, "-s", endpoint, "-u", "user", "-p", "secret", "--append"))
	appended, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Len(t, gjson.GetBytes(appended, "initial_accounts").Array(), 2)
	assert.Len(t, gjson.GetBytes(appended, "initial_balances").Array(), 2)
}

func TestSnapshotDebugTrace(t *testing.T) {
	s := newChain()
	input := writeSeed(t)
	output := filepath.Join(t.TempDir(), "out.json")

	var stdout bytes.Buffer
	require.NoError(t, execute(t, &stdout, "-g", input, "-o", output, "-s", s.Start(t), "-u", "user", "-p", "secret", "-d"))

	trace := stdout.String()
	assert.Contains(t, trace, "alice\nowner_key: "+ownerKey+"\n")
	assert.Contains(t, trace, "is life member: true\n")
	assert.Contains(t, trace, "address: "+ownerAddr+"\nasset_symbol: CORE\namount: 500\n")
	assert.NotContains(t, trace, "temp-account")
}
