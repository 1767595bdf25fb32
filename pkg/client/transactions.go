package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"evm-kit/pkg/abisig"
	"evm-kit/pkg/amount"
	"evm-kit/pkg/errno"
	"evm-kit/pkg/monitor"
	"evm-kit/pkg/mq"
	"evm-kit/pkg/utils/lock"
)

const (
	DefaultReceiptTimeout = 120 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond

	nonceLockTTL   = 30 * time.Second
	nonceLockRetry = 50 * time.Millisecond
)

// Transactions 费用报价、参数补全、签名广播、回执轮询与 ERC-20 授权
type Transactions struct {
	c           *Client
	receiptWait time.Duration
	receiptPoll time.Duration
}

// GasPrice legacy 交易的 gas 报价
func (t *Transactions) GasPrice(ctx context.Context) (amount.TokenAmount, error) {
	v, err := t.c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return amount.TokenAmount{}, fmt.Errorf("%w: gas price: %v", errno.ErrGasQuoteUnavailable, err)
	}
	t.observeFee("gas_price", v)
	return amount.FromWei(v, t.c.Network.Decimals), nil
}

// MaxPriorityFee EIP-1559 小费报价
func (t *Transactions) MaxPriorityFee(ctx context.Context) (amount.TokenAmount, error) {
	v, err := t.c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return amount.TokenAmount{}, fmt.Errorf("%w: max priority fee: %v", errno.ErrGasQuoteUnavailable, err)
	}
	t.observeFee("priority_fee", v)
	return amount.FromWei(v, t.c.Network.Decimals), nil
}

// BaseFee 最新区块的 base fee，不支持 EIP-1559 的链返回 ErrGasQuoteUnavailable
func (t *Transactions) BaseFee(ctx context.Context) (amount.TokenAmount, error) {
	head, err := t.c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return amount.TokenAmount{}, fmt.Errorf("%w: latest block: %v", errno.ErrGasQuoteUnavailable, err)
	}
	if head == nil || head.BaseFee == nil {
		return amount.TokenAmount{}, fmt.Errorf("%w: latest block has no base fee", errno.ErrGasQuoteUnavailable)
	}
	t.observeFee("base_fee", head.BaseFee)
	return amount.FromWei(head.BaseFee, t.c.Network.Decimals), nil
}

// MaxFeePerGas 2 * priority + 1.05 * baseFee
func (t *Transactions) MaxFeePerGas(ctx context.Context) (amount.TokenAmount, error) {
	base, err := t.BaseFee(ctx)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	tip, err := t.MaxPriorityFee(ctx)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	v := MaxFeeFor(tip.Wei(), base.Wei())
	t.observeFee("max_fee", v)
	return amount.FromWei(v, t.c.Network.Decimals), nil
}

// EstimateGas 返回 gas 数量 (以 wei 形式的 TokenAmount 表示)
func (t *Transactions) EstimateGas(ctx context.Context, params TxParams) (amount.TokenAmount, error) {
	gas, err := t.c.backend.EstimateGas(ctx, params.CallMsg())
	if err != nil {
		return amount.TokenAmount{}, err
	}
	return amount.FromWei(new(big.Int).SetUint64(gas), t.c.Network.Decimals), nil
}

// PendingNonce 实现 NonceSource
func (t *Transactions) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	return t.c.Wallet.Nonce(ctx, &account)
}

// AutoAddParams 用当前网络和账户补全参数
func (t *Transactions) AutoAddParams(ctx context.Context, params TxParams) (TxParams, error) {
	return CompleteParams(ctx, params, t.c.Network, t.c.Account.Address, t, t, t)
}

// Sign 签名已补全的参数
// gasPrice 存在时生成 EIP-155 legacy 交易，否则生成 EIP-1559 交易
func (t *Transactions) Sign(params TxParams) (*types.Transaction, error) {
	if missing := params.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", errno.ErrIncompleteParams, missing)
	}
	if *params.From != t.c.Account.Address {
		return nil, fmt.Errorf("%w: from %s, account %s", errno.ErrWrongSender, params.From.Hex(), t.c.Account.Address.Hex())
	}
	signer := types.LatestSignerForChainID(params.ChainID)
	return types.SignNewTx(t.c.Account.key, signer, params.txData())
}

// SignAndSend 补全 -> 签名 -> eth_sendRawTransaction
// 广播失败直接返回，不重试
func (t *Transactions) SignAndSend(ctx context.Context, params TxParams) (*Tx, error) {
	name := t.c.Network.Name

	if t.c.locker != nil {
		key := fmt.Sprintf("nonce:%d:%s", t.c.Network.ChainID, t.c.Account.Address.Hex())
		unlock, err := lock.Wait(ctx, t.c.locker, key, nonceLockTTL, nonceLockRetry)
		if err != nil {
			monitor.TxFailed(name, monitor.StageComplete)
			return nil, fmt.Errorf("acquire nonce lock: %w", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				t.c.log.Warn("release nonce lock failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	completed, err := t.AutoAddParams(ctx, params)
	if err != nil {
		monitor.TxFailed(name, monitor.StageComplete)
		return nil, err
	}
	signed, err := t.Sign(completed)
	if err != nil {
		monitor.TxFailed(name, monitor.StageSign)
		return nil, err
	}
	if err := t.c.backend.SendTransaction(ctx, signed); err != nil {
		monitor.TxFailed(name, monitor.StageSend)
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	monitor.TxSentTotal.WithLabelValues(name).Inc()

	hash := signed.Hash()
	t.c.log.Info("transaction sent",
		zap.String("network", name),
		zap.String("hash", hash.Hex()),
		zap.Uint64("nonce", *completed.Nonce),
		zap.String("explorer", t.c.Network.ExplorerTxURL(hash.Hex())),
	)
	t.publishSent(ctx, hash, completed)

	return NewTx(hash, &completed)
}

// publishSent 尽力而为，失败只记录日志
func (t *Transactions) publishSent(ctx context.Context, hash common.Hash, p TxParams) {
	ev := mq.TxSent{
		Network:  t.c.Network.Name,
		ChainID:  t.c.Network.ChainID,
		Hash:     hash.Hex(),
		From:     p.From.Hex(),
		Nonce:    *p.Nonce,
		Value:    "0",
		Explorer: t.c.Network.ExplorerTxURL(hash.Hex()),
		SentAt:   time.Now().UTC(),
	}
	if p.To != nil {
		ev.To = p.To.Hex()
	}
	if p.Value != nil {
		ev.Value = p.Value.String()
	}
	if err := mq.PublishTxSent(ctx, t.c.producer, ev); err != nil {
		t.c.log.Warn("publish tx event failed", zap.String("hash", ev.Hash), zap.Error(err))
	}
}

// WaitForReceipt 每隔 poll 查询一次回执，直到拿到回执或超过 timeout
// timeout / poll 为 0 时使用默认值；节点返回 "not found" 之外的错误立即返回
func (t *Transactions) WaitForReceipt(ctx context.Context, hash common.Hash, timeout, poll time.Duration) (*types.Receipt, error) {
	if timeout <= 0 {
		timeout = t.receiptWait
	}
	if poll <= 0 {
		poll = t.receiptPoll
	}
	start := time.Now()
	defer func() {
		monitor.ReceiptWaitSeconds.WithLabelValues(t.c.Network.Name).Observe(time.Since(start).Seconds())
	}()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := t.c.backend.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			return nil, fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			monitor.TxFailed(t.c.Network.Name, monitor.StageReceipt)
			t.c.log.Warn("receipt timeout", zap.String("hash", hash.Hex()), zap.Duration("timeout", timeout))
			return nil, fmt.Errorf("%w: %s after %s", errno.ErrReceiptTimeout, hash.Hex(), timeout)
		case <-ticker.C:
		}
	}
}

// Decimals ERC-20 精度
func (t *Transactions) Decimals(ctx context.Context, token ContractRef) (int32, error) {
	addr, _, err := t.c.Contracts.Attributes(token)
	if err != nil {
		return 0, err
	}
	d, err := callBig(ctx, t.c.Contracts.Default(addr), "decimals")
	if err != nil {
		return 0, err
	}
	return int32(d.Int64()), nil
}

// Allowance owner 授权给 spender 的额度 (最小单位)
func (t *Transactions) Allowance(ctx context.Context, token ContractRef, owner, spender common.Address) (*big.Int, error) {
	addr, _, err := t.c.Contracts.Attributes(token)
	if err != nil {
		return nil, err
	}
	return callBig(ctx, t.c.Contracts.Default(addr), "allowance", owner, spender)
}

// ApprovedAmount 已授权额度，owner 为 nil 时使用当前账户
func (t *Transactions) ApprovedAmount(ctx context.Context, token, spender ContractRef, owner *common.Address) (amount.TokenAmount, error) {
	ownerAddr := t.c.Account.Address
	if owner != nil {
		ownerAddr = *owner
	}
	spenderAddr, _, err := t.c.Contracts.Attributes(spender)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	allowance, err := t.Allowance(ctx, token, ownerAddr, spenderAddr)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	decimals, err := t.Decimals(ctx, token)
	if err != nil {
		return amount.TokenAmount{}, err
	}
	return amount.FromWei(allowance, decimals), nil
}

// Approve 授权 spender 使用 token
// value: nil 表示无限额度；amount.TokenAmount 按其 Wei 值；其它数值按 token 精度换算
// gasLimit 为 0 时自动估算
func (t *Transactions) Approve(ctx context.Context, token, spender ContractRef, value any, gasLimit uint64) (*Tx, error) {
	tokenAddr, _, err := t.c.Contracts.Attributes(token)
	if err != nil {
		return nil, err
	}
	spenderAddr, _, err := t.c.Contracts.Attributes(spender)
	if err != nil {
		return nil, err
	}

	wei, err := t.approveAmount(ctx, token, value)
	if err != nil {
		return nil, err
	}

	data, err := t.c.Contracts.Default(tokenAddr).Encode("approve", spenderAddr, wei)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	params := TxParams{
		From: ptr(t.c.Account.Address),
		To:   &tokenAddr,
		Data: data,
	}
	if gasLimit > 0 {
		params.Gas = ptr(gasLimit)
	}
	return t.SignAndSend(ctx, params)
}

func (t *Transactions) approveAmount(ctx context.Context, token ContractRef, value any) (*big.Int, error) {
	switch v := value.(type) {
	case nil:
		return new(big.Int).Set(MaxUint256), nil
	case amount.TokenAmount:
		return v.Wei(), nil
	case *amount.TokenAmount:
		if v == nil {
			return new(big.Int).Set(MaxUint256), nil
		}
		return v.Wei(), nil
	default:
		decimals, err := t.Decimals(ctx, token)
		if err != nil {
			return nil, err
		}
		a, err := amount.New(v, decimals, false)
		if err != nil {
			return nil, err
		}
		return a.Wei(), nil
	}
}

// SignMessage EIP-191 personal_sign，返回 65 字节签名 (v 为 27/28)
func (t *Transactions) SignMessage(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), t.c.Account.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// DecodedArg 解码后的一个参数
type DecodedArg struct {
	Name  string
	Type  string
	Value any
}

// DecodedInput 解码后的调用数据
type DecodedInput struct {
	Signature string
	Method    string
	Args      []DecodedArg
}

// DecodeInput 按 ABI 解码调用数据
// contractABI 为 nil 时用 4byte.directory 查到的候选签名逐个尝试
func (t *Transactions) DecodeInput(ctx context.Context, contractABI *abi.ABI, data []byte) (*DecodedInput, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: calldata shorter than a selector", errno.ErrTransaction)
	}
	if contractABI != nil {
		return decodeWith(contractABI, data)
	}

	for _, text := range t.c.Contracts.Signature(ctx, fmt.Sprintf("0x%x", data[:4])) {
		fd, err := abisig.Parse(text)
		if err != nil {
			continue
		}
		parsed, err := fd.ABI()
		if err != nil {
			continue
		}
		if decoded, err := decodeWith(&parsed, data); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown selector 0x%x", errno.ErrMissingABI, data[:4])
}

func decodeWith(contractABI *abi.ABI, data []byte) (*DecodedInput, error) {
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrMissingABI, err)
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Sig, err)
	}

	out := &DecodedInput{Signature: method.Sig, Method: method.RawName}
	for i, arg := range method.Inputs {
		name := arg.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		out.Args = append(out.Args, DecodedArg{Name: name, Type: arg.Type.String(), Value: values[i]})
	}
	return out, nil
}

func (t *Transactions) observeFee(kind string, v *big.Int) {
	f, _ := new(big.Float).SetInt(v).Float64()
	monitor.FeeQuoteWei.WithLabelValues(t.c.Network.Name, kind).Set(f)
	t.c.log.Debug("fee quote", zap.String("kind", kind), zap.String("wei", v.String()))
}
