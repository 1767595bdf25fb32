package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: development\n"))
	require.NoError(t, err)

	assert.Equal(t, "goerli", cfg.Network.Name)
	assert.Equal(t, 30*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Receipt.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Receipt.PollInterval)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.True(t, cfg.Proxy.Check)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
network:
  name: bsc
rpc:
  rate_limit: 5
  timeout: 10s
receipt:
  poll_interval: 250ms
events:
  driver: kafka
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)
	t.Setenv("EVMKIT_WALLET_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("EVMKIT_PROXY_CHECK", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bsc", cfg.Network.Name)
	assert.Equal(t, float64(5), cfg.RPC.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Receipt.PollInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", cfg.Wallet.PrivateKey)
	assert.False(t, cfg.Proxy.Check)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad env", "app:\n  env: staging\n"},
		{"bad driver", "events:\n  driver: nats\n"},
		{"bad tx type", "network:\n  tx_type: 1\n"},
		{"bad key", "wallet:\n  private_key: not-hex\n"},
		{"bad yaml", "app: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidMessage(t *testing.T) {
	_, err := Load(writeConfig(t, "network:\n  tx_type: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.tx_type 必须是 [0 2] 之一")
}

func TestNetworkConfig_Resolve(t *testing.T) {
	n, err := NetworkConfig{Name: "Polygon", RPC: "https://my-node"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, int64(137), n.ChainID)
	assert.Equal(t, "https://my-node", n.RPC)
	assert.Equal(t, "MATIC", n.CoinSymbol)

	n, err = NetworkConfig{Name: "Fantom", RPC: "https://rpc.ftm.tools", TxType: 0}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "fantom", n.Name)
	assert.Zero(t, n.ChainID)

	_, err = NetworkConfig{Name: "fantom"}.Resolve()
	assert.Error(t, err)
}
