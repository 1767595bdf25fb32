package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"evm-kit/pkg/errno"
)

// Tx 一笔已发送或按 hash 查到的交易
type Tx struct {
	Hash    common.Hash
	Params  *TxParams
	Receipt *types.Receipt
}

// NewTx hash 和 params 至少提供一个
func NewTx(hash common.Hash, params *TxParams) (*Tx, error) {
	if hash == (common.Hash{}) && params == nil {
		return nil, fmt.Errorf("%w: specify hash or params", errno.ErrTransaction)
	}
	return &Tx{Hash: hash, Params: params}, nil
}

// ParseParams 从链上重新读取交易参数
func (t *Tx) ParseParams(ctx context.Context, c *Client) (*TxParams, error) {
	if t.Hash == (common.Hash{}) {
		return nil, fmt.Errorf("%w: transaction has no hash", errno.ErrTransaction)
	}
	tx, _, err := c.backend.TransactionByHash(ctx, t.Hash)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", t.Hash.Hex(), err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("recover sender: %w", err)
	}

	p := &TxParams{
		ChainID: c.Network.ChainIDBig(),
		Nonce:   ptr(tx.Nonce()),
		Gas:     ptr(tx.Gas()),
		From:    &from,
		To:      tx.To(),
		Data:    tx.Data(),
		Value:   tx.Value(),
	}
	if tx.Type() == types.LegacyTxType {
		p.GasPrice = tx.GasPrice()
	} else {
		p.MaxFeePerGas = tx.GasFeeCap()
		p.MaxPriorityFeePerGas = tx.GasTipCap()
	}
	t.Params = p
	return p, nil
}

// WaitForReceipt 等待回执并保存到 Receipt
func (t *Tx) WaitForReceipt(ctx context.Context, c *Client, timeout, poll time.Duration) (*types.Receipt, error) {
	receipt, err := c.Transactions.WaitForReceipt(ctx, t.Hash, timeout, poll)
	if err != nil {
		return nil, err
	}
	t.Receipt = receipt
	return receipt, nil
}
