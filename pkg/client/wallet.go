package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"evm-kit/pkg/amount"
)

// Wallet 余额与 nonce 查询
type Wallet struct {
	c *Client
}

// Balance token 为 nil 时查询原生币余额，owner 为 nil 时查询当前账户
func (w *Wallet) Balance(ctx context.Context, token ContractRef, owner *common.Address) (amount.TokenAmount, error) {
	addr := w.c.Account.Address
	if owner != nil {
		addr = *owner
	}

	if token == nil {
		balance, err := w.c.backend.BalanceAt(ctx, addr, nil)
		if err != nil {
			return amount.TokenAmount{}, fmt.Errorf("get balance of %s: %w", addr.Hex(), err)
		}
		return amount.FromWei(balance, w.c.Network.Decimals), nil
	}

	tokenAddr, _, err := w.c.Contracts.Attributes(token)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	contract := w.c.Contracts.Default(tokenAddr)

	balance, err := callBig(ctx, contract, "balanceOf", addr)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	decimals, err := callBig(ctx, contract, "decimals")
	if err != nil {
		return amount.TokenAmount{}, err
	}
	return amount.FromWei(balance, int32(decimals.Int64())), nil
}

// Nonce pending 状态下的交易数，owner 为 nil 时查询当前账户
func (w *Wallet) Nonce(ctx context.Context, owner *common.Address) (uint64, error) {
	addr := w.c.Account.Address
	if owner != nil {
		addr = *owner
	}
	nonce, err := w.c.backend.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("get nonce of %s: %w", addr.Hex(), err)
	}
	return nonce, nil
}

// callBig 调用只返回一个 uint256 的方法
func callBig(ctx context.Context, ct *Contract, method string, args ...any) (*big.Int, error) {
	out, err := ct.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want *big.Int", method, out[0])
	}
	return v, nil
}
