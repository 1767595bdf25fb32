package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"evm-kit/pkg/amount"
	"evm-kit/pkg/client"
)

var sendCmd = &cobra.Command{
	Use:   "send <to> <amount>",
	Short: "发送原生币 (金额为人类可读单位，例如 0.01)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataHex, _ := cmd.Flags().GetString("data")
		wait, _ := cmd.Flags().GetBool("wait")

		to, err := client.ChecksumAddress(args[0])
		if err != nil {
			return err
		}

		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		value, err := amount.New(args[1], c.Network.Decimals, false)
		if err != nil {
			return err
		}

		params := client.TxParams{To: &to, Value: value.Wei()}
		if dataHex != "" {
			params.Data = common.FromHex(dataHex)
		}

		tx, err := c.Transactions.SignAndSend(cmd.Context(), params)
		if err != nil {
			return err
		}
		printTx(c, tx.Hash)

		if wait {
			return waitAndPrint(cmd, c, tx)
		}
		return nil
	},
}

func printTx(c *client.Client, hash common.Hash) {
	fmt.Printf("交易哈希: %s\n", hash.Hex())
	if u := c.Network.ExplorerTxURL(hash.Hex()); u != "" {
		fmt.Printf("浏览器: %s\n", u)
	}
}

func waitAndPrint(cmd *cobra.Command, c *client.Client, tx *client.Tx) error {
	receipt, err := tx.WaitForReceipt(cmd.Context(), c, 0, 0)
	if err != nil {
		return err
	}
	status := "成功"
	if receipt.Status == 0 {
		status = "失败"
	}
	fmt.Printf("区块: %s  状态: %s  gasUsed: %d\n", receipt.BlockNumber, status, receipt.GasUsed)
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("data", "", "附带的调用数据 (hex)")
	sendCmd.Flags().BoolP("wait", "w", false, "等待回执")
}
