package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"evm-kit/pkg/amount"
	"evm-kit/pkg/errno"
	"evm-kit/pkg/network"
)

// NonceSource 查询账户的 pending nonce
type NonceSource interface {
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
}

// FeeSource 提供费用报价，单位 wei
type FeeSource interface {
	GasPrice(ctx context.Context) (amount.TokenAmount, error)
	MaxPriorityFee(ctx context.Context) (amount.TokenAmount, error)
	BaseFee(ctx context.Context) (amount.TokenAmount, error)
}

// GasEstimator 估算 gas limit
type GasEstimator interface {
	EstimateGas(ctx context.Context, params TxParams) (amount.TokenAmount, error)
}

// baseFeeMultiplier 给下一个区块的 base fee 上涨留出余量
var baseFeeMultiplier = decimal.RequireFromString("1.05")

// MaxFeeFor maxFeePerGas = 2 * priority + 1.05 * baseFee，截断为整数 wei
func MaxFeeFor(priority, baseFee *big.Int) *big.Int {
	p := decimal.NewFromBigInt(priority, 0).Mul(decimal.NewFromInt(2))
	b := decimal.NewFromBigInt(baseFee, 0).Mul(baseFeeMultiplier)
	return p.Add(b).BigInt()
}

// CompleteParams 只补全缺失的字段，按顺序:
// chainId -> nonce -> from -> 费用 -> gas (估算需要其它字段，所以最后)
// 输入不会被修改；已完整的参数不会发起任何 RPC
func CompleteParams(
	ctx context.Context,
	params TxParams,
	n network.Network,
	account common.Address,
	nonces NonceSource,
	fees FeeSource,
	gas GasEstimator,
) (TxParams, error) {
	p := params.Clone()

	if p.ChainID == nil {
		p.ChainID = n.ChainIDBig()
	}

	if p.Nonce == nil {
		nonce, err := nonces.PendingNonce(ctx, account)
		if err != nil {
			return TxParams{}, fmt.Errorf("get nonce: %w", err)
		}
		p.Nonce = ptr(nonce)
	}

	if p.From == nil {
		p.From = ptr(account)
	}

	if err := completeFees(ctx, &p, n, fees); err != nil {
		return TxParams{}, err
	}

	if p.Gas == nil {
		estimated, err := gas.EstimateGas(ctx, p)
		if err != nil {
			return TxParams{}, fmt.Errorf("estimate gas: %w", err)
		}
		p.Gas = ptr(estimated.Wei().Uint64())
	}

	return p, nil
}

func completeFees(ctx context.Context, p *TxParams, n network.Network, fees FeeSource) error {
	switch p.FeeModel(n) {
	case network.Legacy:
		if p.GasPrice != nil {
			return nil
		}
		price, err := fees.GasPrice(ctx)
		if err != nil {
			return quoteErr(err)
		}
		p.GasPrice = price.Wei()

	case network.EIP1559:
		if p.MaxPriorityFeePerGas == nil {
			tip, err := fees.MaxPriorityFee(ctx)
			if err != nil {
				return quoteErr(err)
			}
			p.MaxPriorityFeePerGas = tip.Wei()
		}
		if p.MaxFeePerGas == nil {
			base, err := fees.BaseFee(ctx)
			if err != nil {
				return quoteErr(err)
			}
			p.MaxFeePerGas = MaxFeeFor(p.MaxPriorityFeePerGas, base.Wei())
		}
	}
	return nil
}

func quoteErr(err error) error {
	if errors.Is(err, errno.ErrGasQuoteUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", errno.ErrGasQuoteUnavailable, err)
}
