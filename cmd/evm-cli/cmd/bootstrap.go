package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/term"

	"evm-kit/pkg/cache"
	"evm-kit/pkg/client"
	"evm-kit/pkg/config"
	"evm-kit/pkg/database"
	"evm-kit/pkg/fourbyte"
	"evm-kit/pkg/keystore"
	"evm-kit/pkg/logger"
	"evm-kit/pkg/mq"
	"evm-kit/pkg/utils/lock"
)

// newClient 按全局配置创建 Client
func newClient(ctx context.Context) (*client.Client, error) {
	cfg := config.Global

	n, err := cfg.Network.Resolve()
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithNetwork(n),
		client.WithTimeout(cfg.RPC.Timeout),
		client.WithReceiptDefaults(cfg.Receipt.Timeout, cfg.Receipt.PollInterval),
		client.WithLogger(logger.Named("client")),
	}
	if cfg.Proxy.URL != "" {
		opts = append(opts, client.WithProxy(cfg.Proxy.URL, cfg.Proxy.Check))
	}
	if cfg.RPC.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(cfg.RPC.RateLimit, cfg.RPC.Burst))
	}

	keyOpt, err := accountOption(cfg.Wallet)
	if err != nil {
		return nil, err
	}
	if keyOpt != nil {
		opts = append(opts, keyOpt)
	}

	var rdb *redis.Client
	if cfg.Redis.Cache || cfg.Redis.NonceLock || cfg.Events.Driver == "redis" {
		rdb, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		// 由 Client 关闭，New 失败时也会关闭
		opts = append(opts, client.WithCloser(rdb))
	}

	opts = append(opts, client.WithSignatureDB(signatureDB(cfg.Redis, rdb)))
	if cfg.Redis.NonceLock {
		opts = append(opts, client.WithNonceLock(lock.NewRedisLock(rdb)))
	}

	switch cfg.Events.Driver {
	case "kafka":
		opts = append(opts, client.WithProducer(mq.NewKafkaProducer(cfg.Kafka.Brokers)))
	case "redis":
		opts = append(opts, client.WithProducer(mq.NewRedisProducer(rdb, cfg.Redis.StreamLen)))
	}

	return client.New(ctx, opts...)
}

// accountOption 优先级: 私钥 > 助记词 > keystore 文件；都没有时返回 nil (随机账户)
func accountOption(w config.WalletConfig) (client.Option, error) {
	switch {
	case w.PrivateKey != "":
		return client.WithPrivateKey(w.PrivateKey), nil
	case w.Mnemonic != "":
		return client.WithMnemonic(w.Mnemonic, w.Passphrase, w.DerivationPath), nil
	case w.KeystorePath != "":
		keyJSON, err := keystore.LoadFromFile(w.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("读取 keystore 失败: %w", err)
		}
		password := w.Password
		if password == "" {
			password, err = readPassword("输入 keystore 密码: ")
			if err != nil {
				return nil, err
			}
		}
		secret, err := keystore.Decrypt(keyJSON, password)
		if err != nil {
			return nil, err
		}
		if keyJSON.Kind == keystore.KindMnemonic {
			return client.WithMnemonic(secret, w.Passphrase, w.DerivationPath), nil
		}
		return client.WithPrivateKey(secret), nil
	}
	return nil, nil
}

func signatureDB(cfg config.RedisConfig, rdb *redis.Client) *fourbyte.Client {
	var c cache.Cache = cache.NewMemoryCache(24*time.Hour, time.Hour)
	if cfg.Cache && rdb != nil {
		c = cache.NewMultiLevelCache(c, cache.NewRedisCache(rdb, "4byte:"))
	}
	return fourbyte.NewClient(fourbyte.WithCache(c), fourbyte.WithLogger(logger.Named("4byte")))
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	return string(b), nil
}
