// Package client 封装 EVM 链的常用操作: 余额、合约调用、费用报价、
// 交易参数补全、签名广播与回执轮询。
package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"evm-kit/pkg/errno"
	"evm-kit/pkg/fourbyte"
	"evm-kit/pkg/hdwallet"
	"evm-kit/pkg/logger"
	"evm-kit/pkg/mq"
	"evm-kit/pkg/network"
	"evm-kit/pkg/proxy"
	"evm-kit/pkg/utils/lock"
)

// Account 本地持有私钥的账户
type Account struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

func NewAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{Address: crypto.PubkeyToAddress(key.PublicKey), key: key}
}

// PrivateKeyHex 不带 0x 前缀
func (a *Account) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(a.key))
}

// Client 入口对象，持有网络、账户和 RPC 连接
type Client struct {
	Network network.Network
	Account *Account
	Headers http.Header
	Proxy   string

	Wallet       *Wallet
	Contracts    *Contracts
	Transactions *Transactions

	backend  Backend
	producer mq.Producer
	sigdb    *fourbyte.Client
	locker   lock.DistributedLock
	closers  []io.Closer
	log      *zap.Logger
}

type options struct {
	network     network.Network
	privateKey  string
	mnemonic    string
	passphrase  string
	path        string
	proxy       string
	checkProxy  bool
	echoURL     string
	backend     Backend
	rps         float64
	burst       int
	timeout     time.Duration
	producer    mq.Producer
	sigdb       *fourbyte.Client
	resolver    *network.Resolver
	locker      lock.DistributedLock
	closers     []io.Closer
	log         *zap.Logger
	receiptWait time.Duration
	receiptPoll time.Duration
}

type Option func(*options)

func WithNetwork(n network.Network) Option {
	return func(o *options) { o.network = n }
}

// WithPrivateKey 十六进制私钥，可带 0x 前缀
func WithPrivateKey(hexKey string) Option {
	return func(o *options) { o.privateKey = hexKey }
}

// WithMnemonic path 为空时使用 m/44'/60'/0'/0/0
func WithMnemonic(mnemonic, passphrase, path string) Option {
	return func(o *options) {
		o.mnemonic = mnemonic
		o.passphrase = passphrase
		o.path = path
	}
}

// WithProxy check 为 true 时启动前验证代理出口 IP
func WithProxy(p string, check bool) Option {
	return func(o *options) {
		o.proxy = p
		o.checkProxy = check
	}
}

func WithProxyEchoURL(u string) Option {
	return func(o *options) { o.echoURL = u }
}

// WithBackend 直接注入 RPC 后端，此时不再拨号
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithRateLimit 限制每秒 RPC 请求数
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithTimeout 单个 HTTP 请求的超时时间
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithProducer 交易广播成功后发布 TxSent 事件
func WithProducer(p mq.Producer) Option {
	return func(o *options) { o.producer = p }
}

func WithSignatureDB(c *fourbyte.Client) Option {
	return func(o *options) { o.sigdb = c }
}

func WithResolver(r *network.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithReceiptDefaults 覆盖 WaitForReceipt 的默认超时与轮询间隔
func WithReceiptDefaults(timeout, poll time.Duration) Option {
	return func(o *options) {
		o.receiptWait = timeout
		o.receiptPoll = poll
	}
}

// WithNonceLock 发送前按 (chain id, 账户) 加锁，多个进程共用同一私钥时避免 nonce 冲突
func WithNonceLock(l lock.DistributedLock) Option {
	return func(o *options) { o.locker = l }
}

// WithCloser 由 Client 负责关闭的附属资源 (例如缓存和锁共用的 redis 连接)
// New 失败或 Close 时按传入顺序关闭
func WithCloser(cl io.Closer) Option {
	return func(o *options) { o.closers = append(o.closers, cl) }
}

// New 创建 Client
// 代理不可用、chain id 或原生币符号查询失败都会直接返回错误
func New(ctx context.Context, opts ...Option) (*Client, error) {
	def, _ := network.Get(network.Default)
	o := &options{
		network:     def,
		echoURL:     proxy.EchoURL,
		timeout:     30 * time.Second,
		receiptWait: DefaultReceiptTimeout,
		receiptPoll: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("client")
	}
	if o.producer == nil {
		o.producer = mq.NopProducer{}
	}
	if o.sigdb == nil {
		o.sigdb = fourbyte.NewClient(fourbyte.WithLogger(o.log))
	}
	if o.resolver == nil {
		o.resolver = network.NewResolver(nil)
	}

	ready := false
	defer func() {
		if !ready {
			_ = o.producer.Close()
			_ = closeAll(o.closers)
		}
	}()

	c := &Client{
		Headers:  proxy.DefaultHeaders(),
		Proxy:    proxy.Normalize(o.proxy),
		producer: o.producer,
		sigdb:    o.sigdb,
		locker:   o.locker,
		closers:  o.closers,
		log:      o.log,
	}

	if c.Proxy != "" && o.checkProxy {
		if err := proxy.Check(ctx, c.Proxy, o.echoURL); err != nil {
			return nil, err
		}
	}

	backend := o.backend
	if backend == nil {
		dialed, err := dial(ctx, o.network.RPC, c.Proxy, c.Headers, o.timeout)
		if err != nil {
			return nil, err
		}
		backend = dialed
	}
	if o.rps > 0 {
		backend = NewThrottledBackend(backend, o.rps, o.burst)
	}
	c.backend = backend

	n, err := o.resolver.Resolve(ctx, o.network, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	c.Network = n

	account, err := initAccount(o)
	if err != nil {
		backend.Close()
		return nil, err
	}
	c.Account = account

	c.Wallet = &Wallet{c: c}
	c.Contracts = &Contracts{c: c}
	c.Transactions = &Transactions{c: c, receiptWait: o.receiptWait, receiptPoll: o.receiptPoll}

	ready = true
	c.log.Info("client ready",
		zap.String("network", n.Name),
		zap.Int64("chain_id", n.ChainID),
		zap.String("fee_model", n.FeeModel().String()),
		zap.String("account", account.Address.Hex()),
		zap.Bool("proxy", c.Proxy != ""),
	)
	return c, nil
}

func dial(ctx context.Context, rawURL, proxyURL string, headers http.Header, timeout time.Duration) (*ethclient.Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("network has no rpc url")
	}
	httpClient, err := proxy.HTTPClient(proxyURL, timeout)
	if err != nil {
		return nil, err
	}
	rc, err := rpc.DialOptions(ctx, rawURL, rpc.WithHTTPClient(httpClient), rpc.WithHeaders(headers))
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rawURL, err)
	}
	return ethclient.NewClient(rc), nil
}

// initAccount 优先级: 私钥 > 助记词 > 随机生成
func initAccount(o *options) (*Account, error) {
	switch {
	case o.privateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(o.privateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		return NewAccount(key), nil
	case o.mnemonic != "":
		key, err := hdwallet.DeriveKey(o.mnemonic, o.passphrase, o.path)
		if err != nil {
			return nil, fmt.Errorf("derive key from mnemonic: %w", err)
		}
		return NewAccount(key), nil
	default:
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		return NewAccount(key), nil
	}
}

// Backend 返回底层 RPC 后端
func (c *Client) Backend() Backend {
	return c.backend
}

// Close 释放 RPC 连接、事件生产者和 WithCloser 登记的资源
func (c *Client) Close() error {
	c.backend.Close()
	return errors.Join(c.producer.Close(), closeAll(c.closers))
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, cl := range closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChecksumAddress 校验地址格式并返回 EIP-55 校验和形式
func ChecksumAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", errno.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
