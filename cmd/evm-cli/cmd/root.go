package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evm-kit/pkg/config"
	"evm-kit/pkg/errno"
	"evm-kit/pkg/logger"
)

var (
	cfgFile     string
	networkName string
	rpcURL      string
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "evm-cli",
	Short: "EVM 链命令行工具",
	Long: `查询余额、发送交易、授权 ERC-20、等待回执、解析函数签名。
配置来自 config.yaml、.env 和 EVMKIT_ 前缀的环境变量。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		if networkName != "" {
			config.Global.Network.Name = networkName
		}
		if rpcURL != "" {
			config.Global.Network.RPC = rpcURL
		}
		logger.Init(config.Global.App.Env, config.Global.App.Debug)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code, msg := errno.Decode(err)
		fmt.Fprintf(os.Stderr, "error [%d]: %s\n", code, msg)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "网络名称，覆盖配置")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc", "", "RPC 地址，覆盖配置")
}
