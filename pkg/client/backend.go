package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

// Backend 是 Client 用到的全部 RPC 方法，*ethclient.Client 满足该接口
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	Close()
}

// ThrottledBackend 每个 RPC 请求前先从令牌桶取令牌
type ThrottledBackend struct {
	Backend
	limiter *rate.Limiter
}

// NewThrottledBackend rps: 每秒请求数, burst: 突发请求数 (最少为 1)
func NewThrottledBackend(b Backend, rps float64, burst int) *ThrottledBackend {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledBackend{Backend: b, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// wait 限流器在 deadline 之前就会拒绝 (would exceed context deadline)
// 这里一直等到 ctx 结束，调用方只会看到 ctx.Err()
func (t *ThrottledBackend) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			<-ctx.Done()
		}
		return ctx.Err()
	}
	return nil
}

func (t *ThrottledBackend) ChainID(ctx context.Context) (*big.Int, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.ChainID(ctx)
}

func (t *ThrottledBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.SuggestGasPrice(ctx)
}

func (t *ThrottledBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.SuggestGasTipCap(ctx)
}

func (t *ThrottledBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.HeaderByNumber(ctx, number)
}

func (t *ThrottledBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := t.wait(ctx); err != nil {
		return 0, err
	}
	return t.Backend.EstimateGas(ctx, msg)
}

func (t *ThrottledBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := t.wait(ctx); err != nil {
		return 0, err
	}
	return t.Backend.PendingNonceAt(ctx, account)
}

func (t *ThrottledBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.BalanceAt(ctx, account, blockNumber)
}

func (t *ThrottledBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.CallContract(ctx, call, blockNumber)
}

func (t *ThrottledBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	return t.Backend.SendTransaction(ctx, tx)
}

func (t *ThrottledBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Backend.TransactionReceipt(ctx, txHash)
}

func (t *ThrottledBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if err := t.wait(ctx); err != nil {
		return nil, false, err
	}
	return t.Backend.TransactionByHash(ctx, hash)
}
