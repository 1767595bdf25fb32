package client

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-kit/pkg/errno"
)

const counterABI = `[
  {"inputs":[],"name":"count","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"by","type":"uint256"}],"name":"increment","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

func TestContracts_Attributes(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend(), testNet)

	addr, a, err := c.Contracts.Attributes(AddressRef(usdt))
	require.NoError(t, err)
	assert.Equal(t, usdt, addr)
	assert.Nil(t, a)

	raw, err := NewRawContract("counter", "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", counterABI)
	require.NoError(t, err)
	addr, a, err = c.Contracts.Attributes(raw)
	require.NoError(t, err)
	assert.Equal(t, router, addr)
	require.NotNil(t, a)
	assert.Contains(t, a.Methods, "increment")

	addr, a, err = c.Contracts.Attributes(c.Contracts.Default(usdt))
	require.NoError(t, err)
	assert.Equal(t, usdt, addr)
	assert.Contains(t, a.Methods, "balanceOf")

	_, _, err = c.Contracts.Attributes(nil)
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)
}

func TestContracts_Instance(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend(), testNet)

	_, err := c.Contracts.Instance(AddressRef(usdt), "")
	assert.ErrorIs(t, err, errno.ErrMissingABI)

	ct, err := c.Contracts.Instance(AddressRef(usdt), counterABI)
	require.NoError(t, err)
	assert.Equal(t, usdt, ct.Address)

	raw, err := NewRawContract("counter", router.Hex(), counterABI)
	require.NoError(t, err)
	ct, err = c.Contracts.Instance(raw, "")
	require.NoError(t, err)
	assert.Contains(t, ct.ABI.Methods, "count")

	_, err = NewRawContract("bad", "0x123", counterABI)
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)
}

func TestContract_CallAndEncode(t *testing.T) {
	fb := newFakeBackend()
	c, _ := newTestClient(t, fb, testNet)
	ct, err := c.Contracts.Instance(AddressRef(router), counterABI)
	require.NoError(t, err)
	fb.returns(t, ct.ABI, "count", big.NewInt(9))

	out, err := ct.Call(context.Background(), "count")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(9), out[0].(*big.Int).Int64())
	assert.Equal(t, c.Account.Address, fb.lastCall.From)
	assert.Equal(t, router, *fb.lastCall.To)

	data, err := ct.Encode("increment", big.NewInt(3))
	require.NoError(t, err)
	assert.Len(t, data, 4+32)
	assert.True(t, sameSelector(ct.ABI, "increment", data))

	_, err = ct.Call(context.Background(), "missing")
	assert.Error(t, err)
}

func TestContracts_ParseFunctionToABI(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend(), testNet)

	fd, err := c.Contracts.ParseFunctionToABI("approve(address,uint256)")
	require.NoError(t, err)
	assert.Equal(t, "approve", fd.Name)
	require.Len(t, fd.Inputs, 2)
	assert.Equal(t, common.Bytes2Hex(TokenABI.Methods["approve"].ID), common.Bytes2Hex(sel(fd.Selector())))

	_, err = c.Contracts.ParseFunctionToABI("approve(address,")
	assert.ErrorIs(t, err, errno.ErrMalformedSignature)
}

func sel(b [4]byte) []byte { return b[:] }
