package client

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-kit/pkg/errno"
	"evm-kit/pkg/network"
)

func TestNew_PrivateKey(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend(), testNet)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", c.Account.Address.Hex())
	assert.Equal(t, testKey, c.Account.PrivateKeyHex())
	assert.Equal(t, "application/json", c.Headers.Get("content-type"))
	assert.Contains(t, c.Headers.Get("user-agent"), "Chrome")

	with0x, _ := newTestClient(t, newFakeBackend(), testNet, WithPrivateKey("0x"+testKey))
	assert.Equal(t, c.Account.Address, with0x.Account.Address)
}

func TestNew_Mnemonic(t *testing.T) {
	c, err := New(context.Background(),
		WithBackend(newFakeBackend()),
		WithNetwork(testNet),
		WithMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "", ""),
	)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", c.Account.Address.Hex())
}

func TestNew_RandomAccount(t *testing.T) {
	a, err := New(context.Background(), WithBackend(newFakeBackend()), WithNetwork(testNet))
	require.NoError(t, err)
	b, err := New(context.Background(), WithBackend(newFakeBackend()), WithNetwork(testNet))
	require.NoError(t, err)
	assert.NotEqual(t, a.Account.Address, b.Account.Address)
}

func TestNew_Errors(t *testing.T) {
	t.Run("bad key", func(t *testing.T) {
		fb := newFakeBackend()
		_, err := New(context.Background(), WithBackend(fb), WithNetwork(testNet), WithPrivateKey("zz"))
		assert.Error(t, err)
		assert.True(t, fb.closed)
	})

	t.Run("bad mnemonic", func(t *testing.T) {
		_, err := New(context.Background(), WithBackend(newFakeBackend()), WithNetwork(testNet), WithMnemonic("one two", "", ""))
		assert.Error(t, err)
	})

	t.Run("chain id lookup", func(t *testing.T) {
		fb := newFakeBackend()
		fb.chainIDErr = errors.New("connection refused")
		n := testNet
		n.ChainID = 0
		_, err := New(context.Background(), WithBackend(fb), WithNetwork(n))
		assert.ErrorIs(t, err, errno.ErrWrongChainID)
	})

	t.Run("coin symbol lookup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"chainId": 1, "nativeCurrency": {"symbol": "ETH"}}]`))
		}))
		defer srv.Close()
		resolver := network.NewResolver(srv.Client())
		resolver.ChainListURL = srv.URL

		n := testNet
		n.CoinSymbol = ""
		_, err := New(context.Background(), WithBackend(newFakeBackend()), WithNetwork(n), WithResolver(resolver))
		assert.ErrorIs(t, err, errno.ErrWrongCoinSymbol)
	})

	t.Run("proxy check", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("10.1.2.3\n"))
		}))
		defer srv.Close()

		_, err := New(context.Background(),
			WithBackend(newFakeBackend()),
			WithNetwork(testNet),
			WithProxy(srv.Listener.Addr().String(), true),
		)
		assert.ErrorIs(t, err, errno.ErrInvalidProxy)
	})
}

func TestNew_ResolvesChainID(t *testing.T) {
	fb := newFakeBackend()
	fb.chainID = big.NewInt(31337)
	n := testNet
	n.Name = "Local"
	n.ChainID = 0
	n.CoinSymbol = "eth"

	c, err := New(context.Background(), WithBackend(fb), WithNetwork(n), WithProxy("127.0.0.1:8080", false))
	require.NoError(t, err)
	assert.Equal(t, int64(31337), c.Network.ChainID)
	assert.Equal(t, "local", c.Network.Name)
	assert.Equal(t, "ETH", c.Network.CoinSymbol)
	assert.Equal(t, "http://127.0.0.1:8080", c.Proxy)
}

func TestClose(t *testing.T) {
	fb := newFakeBackend()
	c, _ := newTestClient(t, fb, testNet)
	require.NoError(t, c.Close())
	assert.True(t, fb.closed)
}

type countingCloser struct {
	closed int
	err    error
}

func (c *countingCloser) Close() error {
	c.closed++
	return c.err
}

func TestClose_ExtraClosers(t *testing.T) {
	rdb := &countingCloser{err: errors.New("already closed")}
	c, _ := newTestClient(t, newFakeBackend(), testNet, WithCloser(rdb))

	err := c.Close()
	assert.ErrorIs(t, err, rdb.err)
	assert.Equal(t, 1, rdb.closed)
}

func TestNew_FailureClosesResources(t *testing.T) {
	rdb := &countingCloser{}
	_, err := New(context.Background(),
		WithBackend(newFakeBackend()),
		WithNetwork(testNet),
		WithPrivateKey("zz"),
		WithCloser(rdb),
	)
	require.Error(t, err)
	assert.Equal(t, 1, rdb.closed)
}

func TestChecksumAddress(t *testing.T) {
	addr, err := ChecksumAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")
	require.NoError(t, err)
	assert.Equal(t, "0xdAC17F958D2ee523a2206206994597C13D831ec7", addr.Hex())

	for _, bad := range []string{"", "0x123", "not-an-address"} {
		_, err := ChecksumAddress(bad)
		assert.ErrorIs(t, err, errno.ErrInvalidAddress, bad)
	}
}

func TestThrottledBackend(t *testing.T) {
	fb := newFakeBackend()
	tb := NewThrottledBackend(fb, 1, 1)

	_, err := tb.ChainID(context.Background())
	require.NoError(t, err)

	// 令牌已用完，下一个请求要等 1s，context 先超时
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tb.SuggestGasPrice(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, fb.count("SuggestGasPrice"))

	c, _ := newTestClient(t, fb, testNet, WithRateLimit(1000, 10))
	_, ok := c.Backend().(*ThrottledBackend)
	assert.True(t, ok)
}
