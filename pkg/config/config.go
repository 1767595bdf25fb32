package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"evm-kit/pkg/network"
	"evm-kit/pkg/validator"
)

// EnvPrefix 环境变量前缀，例如 EVMKIT_WALLET_PRIVATE_KEY
const EnvPrefix = "EVMKIT"

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Network NetworkConfig `mapstructure:"network"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	RPC     RPCConfig     `mapstructure:"rpc"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Events  EventsConfig  `mapstructure:"events"`
	Receipt ReceiptConfig `mapstructure:"receipt"`
}

type AppConfig struct {
	Env   string `mapstructure:"env" validate:"oneof=development production"`
	Debug bool   `mapstructure:"debug"`
}

// NetworkConfig name 命中内置网络时其余字段作为覆盖项，否则必须提供 rpc
type NetworkConfig struct {
	Name       string `mapstructure:"name" validate:"required"`
	RPC        string `mapstructure:"rpc" validate:"omitempty,url"`
	ChainID    int64  `mapstructure:"chain_id" validate:"gte=0"`
	TxType     uint8  `mapstructure:"tx_type" validate:"oneof=0 2"`
	Decimals   int32  `mapstructure:"decimals" validate:"gte=0,lte=36"`
	CoinSymbol string `mapstructure:"coin_symbol"`
	Explorer   string `mapstructure:"explorer" validate:"omitempty,url"`
}

type WalletConfig struct {
	PrivateKey     string `mapstructure:"private_key" validate:"omitempty,hexadecimal"`
	Mnemonic       string `mapstructure:"mnemonic"`
	Passphrase     string `mapstructure:"passphrase"`
	DerivationPath string `mapstructure:"derivation_path"`
	KeystorePath   string `mapstructure:"keystore_path"` // 本地 Keystore 文件路径
	Password       string `mapstructure:"password"`      // Keystore 密码 (通常通过环境变量 EVMKIT_WALLET_PASSWORD 传入)
}

type ProxyConfig struct {
	URL   string `mapstructure:"url"`
	Check bool   `mapstructure:"check"`
}

type RPCConfig struct {
	RateLimit float64       `mapstructure:"rate_limit" validate:"gte=0"` // 每秒请求数，0 表示不限速
	Burst     int           `mapstructure:"burst" validate:"gte=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	Cache     bool   `mapstructure:"cache"`      // 4byte 结果写入 redis 二级缓存
	StreamLen int64  `mapstructure:"stream_len"` // redis stream 近似最大长度
	NonceLock bool   `mapstructure:"nonce_lock"` // 多进程共用账户时用 redis 锁串行化发送
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// EventsConfig 交易事件发布方式
type EventsConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=none redis kafka"`
}

type ReceiptConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

var Global Config

// Init 读取配置到 Global
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Global = *cfg
	return nil
}

// Load 依次读取 .env、配置文件 (path 为空时在 . 和 ./config 下找 config.yaml) 和环境变量
func Load(path string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %s", validator.ErrorMsg(err))
	}
	return &cfg, nil
}

// setDefaults 所有键都要有默认值，否则 AutomaticEnv 在 Unmarshal 时不生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("network.name", network.Default)
	v.SetDefault("network.rpc", "")
	v.SetDefault("network.chain_id", 0)
	v.SetDefault("network.tx_type", 2)
	v.SetDefault("network.decimals", 0)
	v.SetDefault("network.coin_symbol", "")
	v.SetDefault("network.explorer", "")

	v.SetDefault("wallet.private_key", "")
	v.SetDefault("wallet.mnemonic", "")
	v.SetDefault("wallet.passphrase", "")
	v.SetDefault("wallet.derivation_path", "")
	v.SetDefault("wallet.keystore_path", "")
	v.SetDefault("wallet.password", "")

	v.SetDefault("proxy.url", "")
	v.SetDefault("proxy.check", true)

	v.SetDefault("rpc.rate_limit", 0)
	v.SetDefault("rpc.burst", 1)
	v.SetDefault("rpc.timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache", false)
	v.SetDefault("redis.stream_len", 10000)
	v.SetDefault("redis.nonce_lock", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("events.driver", "none")

	v.SetDefault("receipt.timeout", 120*time.Second)
	v.SetDefault("receipt.poll_interval", 100*time.Millisecond)
}

// Resolve 把配置转换成 Network
// 内置网络: 非零字段覆盖注册表；自定义网络: 必须提供 rpc，chain id 和符号留给 network.Resolver
func (c NetworkConfig) Resolve() (network.Network, error) {
	n, ok := network.Get(c.Name)
	if !ok {
		if c.RPC == "" {
			return network.Network{}, fmt.Errorf("unknown network %q: rpc is required", c.Name)
		}
		return network.Network{
			Name:       strings.ToLower(c.Name),
			RPC:        c.RPC,
			ChainID:    c.ChainID,
			TxType:     c.TxType,
			Decimals:   c.Decimals,
			CoinSymbol: c.CoinSymbol,
			Explorer:   c.Explorer,
		}, nil
	}

	if c.RPC != "" {
		n.RPC = c.RPC
	}
	if c.ChainID != 0 {
		n.ChainID = c.ChainID
	}
	if c.Decimals != 0 {
		n.Decimals = c.Decimals
	}
	if c.CoinSymbol != "" {
		n.CoinSymbol = c.CoinSymbol
	}
	if c.Explorer != "" {
		n.Explorer = c.Explorer
	}
	return n, nil
}
