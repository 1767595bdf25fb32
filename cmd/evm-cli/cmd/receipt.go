package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"evm-kit/pkg/client"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt <tx-hash>",
	Short: "等待并打印交易回执",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		poll, _ := cmd.Flags().GetDuration("poll")
		showParams, _ := cmd.Flags().GetBool("params")

		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		tx, err := client.NewTx(common.HexToHash(args[0]), nil)
		if err != nil {
			return err
		}
		if showParams {
			params, err := tx.ParseParams(cmd.Context(), c)
			if err != nil {
				return err
			}
			if err := printJSON(params); err != nil {
				return err
			}
		}

		receipt, err := tx.WaitForReceipt(cmd.Context(), c, timeout, poll)
		if err != nil {
			return err
		}
		return printJSON(receipt)
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(receiptCmd)
	receiptCmd.Flags().Duration("timeout", 0, "等待超时，0 使用配置值")
	receiptCmd.Flags().Duration("poll", 0, "轮询间隔，0 使用配置值")
	receiptCmd.Flags().Bool("params", false, "同时打印交易参数")
}
