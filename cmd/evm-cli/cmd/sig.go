package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"evm-kit/pkg/abisig"
	"evm-kit/pkg/config"
)

var sigCmd = &cobra.Command{
	Use:   "sig <selector>",
	Short: "在 4byte.directory 查询 selector 对应的函数签名",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 不需要 RPC，只用签名库
		db := signatureDB(config.RedisConfig{}, nil)
		matches := db.Lookup(cmd.Context(), args[0])
		if len(matches) == 0 {
			fmt.Println("没有匹配的签名")
			return nil
		}
		for _, m := range matches {
			fmt.Println(m)
		}
		return nil
	},
}

var abiCmd = &cobra.Command{
	Use:   "abi <text-signature>",
	Short: "把文本签名转换为 ABI 片段，例如 \"approve(address,uint256)\"",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fd, err := abisig.Parse(args[0])
		if err != nil {
			return err
		}
		sel := fd.Selector()
		fmt.Printf("signature: %s\nselector:  0x%x\n", fd.Signature(), sel[:])
		return printJSON(fd)
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <calldata>",
	Short: "按 4byte 签名解码调用数据",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		decoded, err := c.Transactions.DecodeInput(cmd.Context(), nil, common.FromHex(strings.TrimSpace(args[0])))
		if err != nil {
			return err
		}
		fmt.Println(decoded.Signature)
		for _, arg := range decoded.Args {
			fmt.Printf("  %s (%s): %v\n", arg.Name, arg.Type, arg.Value)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sigCmd, abiCmd, decodeCmd)
}
