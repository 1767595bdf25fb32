package abisig

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-kit/pkg/errno"
)

var uint256Out = []Param{{Type: "uint256"}}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		inputs []Param
	}{
		{
			name:   "two primitives",
			text:   "approve(address,uint256)",
			want:   "approve",
			inputs: []Param{{Type: "address"}, {Type: "uint256"}},
		},
		{
			name:   "no arguments",
			text:   "foo()",
			want:   "foo",
			inputs: []Param{},
		},
		{
			name:   "no parentheses",
			text:   "foo",
			want:   "foo",
			inputs: []Param{},
		},
		{
			name: "single tuple",
			text: "bar((address,uint256))",
			want: "bar",
			inputs: []Param{
				{Type: "tuple", Components: []Param{{Type: "address"}, {Type: "uint256"}}},
			},
		},
		{
			name: "consecutive tuples keep textual order",
			text: "swap((address,uint24),uint256,(bool,bytes))",
			want: "swap",
			inputs: []Param{
				{Type: "tuple", Components: []Param{{Type: "address"}, {Type: "uint24"}}},
				{Type: "uint256"},
				{Type: "tuple", Components: []Param{{Type: "bool"}, {Type: "bytes"}}},
			},
		},
		{
			name: "nested tuple components stay under their own tuple",
			text: "route((address,(uint256,bytes32)),address)",
			want: "route",
			inputs: []Param{
				{Type: "tuple", Components: []Param{
					{Type: "address"},
					{Type: "tuple", Components: []Param{{Type: "uint256"}, {Type: "bytes32"}}},
				}},
				{Type: "address"},
			},
		},
		{
			name: "tuple array",
			text: "multicall((address,bytes)[],uint256[2])",
			want: "multicall",
			inputs: []Param{
				{Type: "tuple[]", Components: []Param{{Type: "address"}, {Type: "bytes"}}},
				{Type: "uint256[2]"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, "function", fd.Type)
			assert.Equal(t, tt.want, fd.Name)
			assert.Equal(t, tt.inputs, fd.Inputs)
			assert.Equal(t, uint256Out, fd.Outputs)
		})
	}
}

func TestParse_NestedTupleTree(t *testing.T) {
	fd, err := Parse("f((address,(uint256,bool)))")
	require.NoError(t, err)
	require.Len(t, fd.Inputs, 1)

	outer := fd.Inputs[0]
	assert.Equal(t, "tuple", outer.Type)
	require.Len(t, outer.Components, 2)
	assert.Equal(t, Param{Type: "address"}, outer.Components[0])
	assert.Equal(t, Param{Type: "tuple", Components: []Param{{Type: "uint256"}, {Type: "bool"}}}, outer.Components[1])
	assert.Equal(t, "f((address,(uint256,bool)))", fd.Signature())
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"",
		"(address)",
		"approve(address,uint256",
		"approve(address,uint256))",
		"approve((address,uint256)",
		"approve(address)extra",
		"approve(address,,uint256)",
		"approve(,address)",
		"approve(address,)",
		"approve(tuple)",
		"approve(address(uint256))",
		"approve((address)x)",
	}

	for _, text := range cases {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			assert.ErrorIs(t, err, errno.ErrMalformedSignature)
		})
	}
}

func TestDescriptorJSON(t *testing.T) {
	fd, err := Parse("bar((address,uint256))")
	require.NoError(t, err)

	raw, err := json.Marshal(fd)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"function","name":"bar","inputs":[{"type":"tuple","components":[{"type":"address"},{"type":"uint256"}]}],"outputs":[{"type":"uint256"}]}`,
		string(raw))
}

func TestSignatureAndSelector(t *testing.T) {
	fd, err := Parse("approve(address, uint256)")
	require.NoError(t, err)
	assert.Equal(t, "approve(address,uint256)", fd.Signature())

	sel := fd.Selector()
	assert.Equal(t, "095ea7b3", hex.EncodeToString(sel[:]))

	nested, err := Parse("route((address,(uint256,bytes32))[],address)")
	require.NoError(t, err)
	assert.Equal(t, "route((address,(uint256,bytes32))[],address)", nested.Signature())
}

func TestABI(t *testing.T) {
	fd, err := Parse("approve(address,uint256)")
	require.NoError(t, err)

	parsed, err := fd.ABI()
	require.NoError(t, err)

	spender := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	data, err := parsed.Pack("approve", spender, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "095ea7b3", hex.EncodeToString(data[:4]))
	assert.Len(t, data, 4+32+32)

	tupled, err := Parse("bar((address,uint256))")
	require.NoError(t, err)
	tupledABI, err := tupled.ABI()
	require.NoError(t, err)
	assert.Equal(t, "bar((address,uint256))", tupledABI.Methods["bar"].Sig)
}
