package network

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"time"

	"evm-kit/pkg/errno"
)

// FeeModel 交易费用模型
type FeeModel int

const (
	Legacy  FeeModel = iota // gasPrice
	EIP1559                 // maxFeePerGas + maxPriorityFeePerGas
)

func (m FeeModel) String() string {
	if m == EIP1559 {
		return "eip1559"
	}
	return "legacy"
}

// ChainListURL 公共链信息表，用于补全原生币符号
const ChainListURL = "https://chainid.network/chains.json"

// Network 描述一条 EVM 链
type Network struct {
	Name       string `json:"name"`
	RPC        string `json:"rpc"`
	ChainID    int64  `json:"chain_id"`    // 0 表示未知，需要 Resolve
	TxType     uint8  `json:"tx_type"`     // 0: legacy, 2: EIP-1559
	Decimals   int32  `json:"decimals"`    // 原生币精度
	CoinSymbol string `json:"coin_symbol"` // 为空时从 chains.json 查询
	Explorer   string `json:"explorer"`
}

func (n Network) FeeModel() FeeModel {
	if n.TxType == 2 {
		return EIP1559
	}
	return Legacy
}

// ChainIDBig 返回 *big.Int 形式的 chain id
func (n Network) ChainIDBig() *big.Int {
	return big.NewInt(n.ChainID)
}

// ExplorerTxURL 返回区块浏览器上的交易链接，未配置浏览器时返回空字符串
func (n Network) ExplorerTxURL(txHash string) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimSuffix(n.Explorer, "/") + "/tx/" + txHash
}

// ChainIDFetcher 可以查询 RPC 节点的 chain id (ethclient.Client 满足该接口)
type ChainIDFetcher interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Resolver 补全 Network 中缺失的 chain id 与原生币符号
type Resolver struct {
	HTTPClient   *http.Client
	ChainListURL string
}

func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{HTTPClient: httpClient, ChainListURL: ChainListURL}
}

// Resolve 规范化名称 (小写) 与符号 (大写)，按需查询 chain id 与符号
// 两种查询失败都属于启动阶段的致命错误
func (r *Resolver) Resolve(ctx context.Context, n Network, rpc ChainIDFetcher) (Network, error) {
	n.Name = strings.ToLower(n.Name)
	if n.Decimals == 0 {
		n.Decimals = 18
	}

	if n.ChainID == 0 {
		if rpc == nil {
			return n, fmt.Errorf("%w: no rpc client", errno.ErrWrongChainID)
		}
		id, err := rpc.ChainID(ctx)
		if err != nil {
			return n, fmt.Errorf("%w: %v", errno.ErrWrongChainID, err)
		}
		n.ChainID = id.Int64()
	}

	if n.CoinSymbol == "" {
		symbol, err := r.coinSymbol(ctx, n.ChainID)
		if err != nil {
			return n, fmt.Errorf("%w: %v", errno.ErrWrongCoinSymbol, err)
		}
		n.CoinSymbol = symbol
	}
	n.CoinSymbol = strings.ToUpper(n.CoinSymbol)
	return n, nil
}

type chainListEntry struct {
	ChainID        int64 `json:"chainId"`
	NativeCurrency struct {
		Symbol string `json:"symbol"`
	} `json:"nativeCurrency"`
}

func (r *Resolver) coinSymbol(ctx context.Context, chainID int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.ChainListURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chain list status %d", resp.StatusCode)
	}

	var entries []chainListEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", fmt.Errorf("decode chain list: %w", err)
	}
	for _, e := range entries {
		if e.ChainID == chainID {
			return e.NativeCurrency.Symbol, nil
		}
	}
	return "", fmt.Errorf("chain %d not found in chain list", chainID)
}

// registry 在包初始化时构建，此后只读
var registry = map[string]Network{
	// Mainnets
	"ethereum":      {Name: "ethereum", RPC: "https://rpc.ankr.com/eth/", ChainID: 1, TxType: 2, Decimals: 18, CoinSymbol: "ETH", Explorer: "https://etherscan.io/"},
	"arbitrum":      {Name: "arbitrum", RPC: "https://arbitrum.llamarpc.com", ChainID: 42161, TxType: 2, Decimals: 18, CoinSymbol: "ETH", Explorer: "https://arbiscan.io/"},
	"arbitrum_nova": {Name: "arbitrum_nova", RPC: "https://nova.arbitrum.io/rpc/", ChainID: 42170, TxType: 2, Decimals: 18, CoinSymbol: "ETH", Explorer: "https://nova.arbiscan.io/"},
	"optimism":      {Name: "optimism", RPC: "https://rpc.ankr.com/optimism/", ChainID: 10, TxType: 2, Decimals: 18, CoinSymbol: "ETH", Explorer: "https://optimistic.etherscan.io/"},
	"bsc":           {Name: "bsc", RPC: "https://rpc.ankr.com/bsc/", ChainID: 56, TxType: 0, Decimals: 18, CoinSymbol: "BNB", Explorer: "https://bscscan.com/"},
	"polygon":       {Name: "polygon", RPC: "https://rpc.ankr.com/polygon/", ChainID: 137, TxType: 2, Decimals: 18, CoinSymbol: "MATIC", Explorer: "https://polygonscan.com/"},
	"avalanche":     {Name: "avalanche", RPC: "https://rpc.ankr.com/avalanche/", ChainID: 43114, TxType: 2, Decimals: 18, CoinSymbol: "AVAX", Explorer: "https://snowtrace.io/"},

	// Testnets
	"goerli": {Name: "goerli", RPC: "https://rpc.ankr.com/eth_goerli/", ChainID: 5, TxType: 2, Decimals: 18, CoinSymbol: "ETH", Explorer: "https://goerli.etherscan.io/"},
}

// Default 未指定网络时使用的网络名
const Default = "goerli"

// Get 按名称 (不区分大小写) 查询内置网络，返回值是副本
func Get(name string) (Network, bool) {
	n, ok := registry[strings.ToLower(name)]
	return n, ok
}

// Names 返回所有内置网络名 (字母序)
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
