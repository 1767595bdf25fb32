package client

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"evm-kit/pkg/network"
)

// TxParams 待发送交易的参数，nil 表示未提供
// 每笔交易构造一次，补全后不再修改；需要改动时先 Clone
type TxParams struct {
	ChainID              *big.Int        `json:"chainId,omitempty"`
	Nonce                *uint64         `json:"nonce,omitempty"`
	From                 *common.Address `json:"from,omitempty"`
	To                   *common.Address `json:"to,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Value                *big.Int        `json:"value,omitempty"`
	Gas                  *uint64         `json:"gas,omitempty"`
	GasPrice             *big.Int        `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int        `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int        `json:"maxPriorityFeePerGas,omitempty"`
}

// Clone 深拷贝
func (p TxParams) Clone() TxParams {
	out := TxParams{
		ChainID:              cloneBig(p.ChainID),
		Value:                cloneBig(p.Value),
		GasPrice:             cloneBig(p.GasPrice),
		MaxFeePerGas:         cloneBig(p.MaxFeePerGas),
		MaxPriorityFeePerGas: cloneBig(p.MaxPriorityFeePerGas),
	}
	if p.Nonce != nil {
		out.Nonce = ptr(*p.Nonce)
	}
	if p.Gas != nil {
		out.Gas = ptr(*p.Gas)
	}
	if p.From != nil {
		out.From = ptr(*p.From)
	}
	if p.To != nil {
		out.To = ptr(*p.To)
	}
	if p.Data != nil {
		out.Data = append(hexutil.Bytes{}, p.Data...)
	}
	return out
}

// FeeModel 交易自身的费用模型: 提供了 gasPrice 时为 legacy，
// 提供了任一 EIP-1559 费用字段时为 EIP-1559，否则跟随网络
func (p TxParams) FeeModel(n network.Network) network.FeeModel {
	switch {
	case p.GasPrice != nil:
		return network.Legacy
	case p.MaxFeePerGas != nil || p.MaxPriorityFeePerGas != nil:
		return network.EIP1559
	default:
		return n.FeeModel()
	}
}

// Missing 返回签名前仍缺失的字段名 (JSON 名)
func (p TxParams) Missing() []string {
	var missing []string
	if p.ChainID == nil {
		missing = append(missing, "chainId")
	}
	if p.Nonce == nil {
		missing = append(missing, "nonce")
	}
	if p.From == nil {
		missing = append(missing, "from")
	}
	if p.Gas == nil {
		missing = append(missing, "gas")
	}
	if p.GasPrice == nil {
		if p.MaxFeePerGas == nil {
			missing = append(missing, "maxFeePerGas")
		}
		if p.MaxPriorityFeePerGas == nil {
			missing = append(missing, "maxPriorityFeePerGas")
		}
	}
	return missing
}

// CallMsg 用于 eth_estimateGas / eth_call
func (p TxParams) CallMsg() ethereum.CallMsg {
	msg := ethereum.CallMsg{
		To:    p.To,
		Value: p.Value,
		Data:  p.Data,
	}
	if p.From != nil {
		msg.From = *p.From
	}
	if p.Gas != nil {
		msg.Gas = *p.Gas
	}
	if p.GasPrice != nil {
		msg.GasPrice = p.GasPrice
	} else {
		msg.GasFeeCap = p.MaxFeePerGas
		msg.GasTipCap = p.MaxPriorityFeePerGas
	}
	return msg
}

// txData 把补全后的参数转换为 go-ethereum 交易体，调用前必须保证 Missing() 为空
func (p TxParams) txData() types.TxData {
	value := p.Value
	if value == nil {
		value = new(big.Int)
	}
	if p.GasPrice != nil {
		return &types.LegacyTx{
			Nonce:    *p.Nonce,
			GasPrice: p.GasPrice,
			Gas:      *p.Gas,
			To:       p.To,
			Value:    value,
			Data:     p.Data,
		}
	}
	return &types.DynamicFeeTx{
		ChainID:   p.ChainID,
		Nonce:     *p.Nonce,
		GasTipCap: p.MaxPriorityFeePerGas,
		GasFeeCap: p.MaxFeePerGas,
		Gas:       *p.Gas,
		To:        p.To,
		Value:     value,
		Data:      p.Data,
	}
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func ptr[T any](v T) *T {
	return &v
}
