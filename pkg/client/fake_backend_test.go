package client

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"evm-kit/pkg/mq"
	"evm-kit/pkg/network"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var testNet = network.Network{
	Name:       "testnet",
	RPC:        "http://127.0.0.1:0",
	ChainID:    1337,
	TxType:     2,
	Decimals:   18,
	CoinSymbol: "ETH",
	Explorer:   "https://scan.test/",
}

var legacyNet = network.Network{
	Name:       "testnet_legacy",
	RPC:        "http://127.0.0.1:0",
	ChainID:    56,
	TxType:     0,
	Decimals:   18,
	CoinSymbol: "BNB",
}

// fakeBackend 内存里的 RPC 节点
type fakeBackend struct {
	mu sync.Mutex

	chainID  *big.Int
	gasPrice *big.Int
	tip      *big.Int
	baseFee  *big.Int
	gas      uint64
	nonce    uint64
	balance  *big.Int

	chainIDErr  error
	gasPriceErr error
	tipErr      error
	headerErr   error
	estimateErr error
	sendErr     error
	receiptErr  error

	// 前 notFound 次查询回执返回 ethereum.NotFound
	notFound int
	// 按 selector 返回 eth_call 结果
	calls map[[4]byte][]byte

	sent     []*types.Transaction
	txs      map[common.Hash]*types.Transaction
	counts   map[string]int
	lastCall ethereum.CallMsg
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(1337),
		gasPrice: big.NewInt(5),
		tip:      big.NewInt(2),
		baseFee:  big.NewInt(10),
		gas:      21000,
		nonce:    7,
		balance:  big.NewInt(0),
		calls:    map[[4]byte][]byte{},
		txs:      map[common.Hash]*types.Transaction{},
		counts:   map[string]int{},
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

// returns 为 ABI 方法注册 eth_call 返回值
func (f *fakeBackend) returns(t *testing.T, a abi.ABI, method string, values ...any) {
	t.Helper()
	m, ok := a.Methods[method]
	require.True(t, ok, method)
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	var sel [4]byte
	copy(sel[:], m.ID)
	f.calls[sel] = out
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	f.hit("ChainID")
	return f.chainID, f.chainIDErr
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.hit("SuggestGasPrice")
	return f.gasPrice, f.gasPriceErr
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	f.hit("SuggestGasTipCap")
	return f.tip, f.tipErr
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.hit("HeaderByNumber")
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	return &types.Header{Number: big.NewInt(100), BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.hit("EstimateGas")
	f.mu.Lock()
	f.lastCall = msg
	f.mu.Unlock()
	return f.gas, f.estimateErr
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.hit("PendingNonceAt")
	return f.nonce, nil
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	f.hit("BalanceAt")
	return f.balance, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.hit("CallContract")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCall = msg
	if len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	out, ok := f.calls[sel]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.hit("SendTransaction")
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.txs[tx.Hash()] = tx
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.hit("TransactionReceipt")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.notFound > 0 {
		f.notFound--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(101)}, nil
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.hit("TransactionByHash")
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (f *fakeBackend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeBackend) lastSent(t *testing.T) *types.Transaction {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

// newTestClient 注入 fakeBackend，网络信息完整，不会发起任何 HTTP 请求
func newTestClient(t *testing.T, fb *fakeBackend, n network.Network, opts ...Option) (*Client, *mq.MemoryProducer) {
	t.Helper()
	producer := &mq.MemoryProducer{}
	all := append([]Option{
		WithBackend(fb),
		WithNetwork(n),
		WithPrivateKey(testKey),
		WithProducer(producer),
	}, opts...)
	c, err := New(context.Background(), all...)
	require.NoError(t, err)
	return c, producer
}

func selectorOf(data []byte) []byte {
	if len(data) < 4 {
		return nil
	}
	return data[:4]
}

func sameSelector(a abi.ABI, method string, data []byte) bool {
	return bytes.Equal(a.Methods[method].ID, selectorOf(data))
}
