package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"evm-kit/pkg/abisig"
	"evm-kit/pkg/errno"
)

// ContractRef 合约引用: AddressRef、*RawContract 或 *Contract
type ContractRef interface {
	contractRef()
}

// AddressRef 只有地址，没有 ABI
type AddressRef common.Address

func (AddressRef) contractRef() {}

// Address 把字符串地址转换为 AddressRef
func Address(s string) (AddressRef, error) {
	addr, err := ChecksumAddress(s)
	if err != nil {
		return AddressRef{}, err
	}
	return AddressRef(addr), nil
}

// RawContract 带名称和 ABI 的合约描述
type RawContract struct {
	Title   string
	Address common.Address
	ABI     *abi.ABI
}

func (*RawContract) contractRef() {}

// NewRawContract abiJSON 为 ABI JSON 数组
func NewRawContract(title, address, abiJSON string) (*RawContract, error) {
	addr, err := ChecksumAddress(address)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi of %s: %w", title, err)
	}
	return &RawContract{Title: title, Address: addr, ABI: &parsed}, nil
}

// Contract 绑定了 ABI 和 RPC 后端的合约实例
type Contract struct {
	Address common.Address
	ABI     abi.ABI
	c       *Client
}

func (*Contract) contractRef() {}

// Encode 编码调用数据
func (ct *Contract) Encode(method string, args ...any) ([]byte, error) {
	return ct.ABI.Pack(method, args...)
}

// Call 以当前账户为 from 执行 eth_call 并解码返回值
func (ct *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := ct.Encode(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	params := TxParams{From: &ct.c.Account.Address, To: &ct.Address, Data: data}
	out, err := ct.c.backend.CallContract(ctx, params.CallMsg(), nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, ct.Address.Hex(), err)
	}
	values, err := ct.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// Contracts 合约相关操作
type Contracts struct {
	c *Client
}

// Attributes 把合约引用解析为地址和 ABI (可能为 nil)
func (cs *Contracts) Attributes(ref ContractRef) (common.Address, *abi.ABI, error) {
	switch r := ref.(type) {
	case AddressRef:
		return common.Address(r), nil, nil
	case *RawContract:
		if r == nil {
			break
		}
		return r.Address, r.ABI, nil
	case *Contract:
		if r == nil {
			break
		}
		return r.Address, &r.ABI, nil
	}
	return common.Address{}, nil, fmt.Errorf("%w: empty contract reference", errno.ErrInvalidAddress)
}

// Default 使用默认 ERC-20 ABI 的合约实例
func (cs *Contracts) Default(address common.Address) *Contract {
	return &Contract{Address: address, ABI: TokenABI, c: cs.c}
}

// Instance abiJSON 非空时优先使用，否则使用 ref 自带的 ABI；两者都没有返回 ErrMissingABI
func (cs *Contracts) Instance(ref ContractRef, abiJSON string) (*Contract, error) {
	addr, refABI, err := cs.Attributes(ref)
	if err != nil {
		return nil, err
	}
	if abiJSON != "" {
		parsed, err := abi.JSON(strings.NewReader(abiJSON))
		if err != nil {
			return nil, fmt.Errorf("parse abi: %w", err)
		}
		return &Contract{Address: addr, ABI: parsed, c: cs.c}, nil
	}
	if refABI == nil {
		return nil, fmt.Errorf("%w: %s", errno.ErrMissingABI, addr.Hex())
	}
	return &Contract{Address: addr, ABI: *refABI, c: cs.c}, nil
}

// ParseFunctionToABI 文本签名 -> ABI 函数描述
func (cs *Contracts) ParseFunctionToABI(text string) (abisig.FunctionDescriptor, error) {
	return abisig.Parse(text)
}

// Signature 在 4byte.directory 查询 selector 对应的文本签名，失败返回 nil
func (cs *Contracts) Signature(ctx context.Context, hexSignature string) []string {
	return cs.c.sigdb.Lookup(ctx, hexSignature)
}
