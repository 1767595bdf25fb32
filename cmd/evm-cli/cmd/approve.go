package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"evm-kit/pkg/client"
)

var approveCmd = &cobra.Command{
	Use:   "approve <token> <spender> [amount]",
	Short: "授权 spender 使用 ERC-20，不填金额为无限授权",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		gasLimit, _ := cmd.Flags().GetUint64("gas")
		wait, _ := cmd.Flags().GetBool("wait")

		token, err := client.Address(args[0])
		if err != nil {
			return err
		}
		spender, err := client.Address(args[1])
		if err != nil {
			return err
		}
		var value any
		if len(args) == 3 {
			value = args[2]
		}

		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		tx, err := c.Transactions.Approve(cmd.Context(), token, spender, value, gasLimit)
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

var allowanceCmd = &cobra.Command{
	Use:   "allowance <token> <spender> [owner]",
	Short: "查询已授权额度",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := client.Address(args[0])
		if err != nil {
			return err
		}
		spender, err := client.Address(args[1])
		if err != nil {
			return err
		}

		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		owner := &c.Account.Address
		if len(args) == 3 {
			addr, err := client.ChecksumAddress(args[2])
			if err != nil {
				return err
			}
			owner = &addr
		}

		approved, err := c.Transactions.ApprovedAmount(cmd.Context(), token, spender, owner)
		if err != nil {
			return err
		}
		if approved.Wei().Cmp(client.MaxUint256) == 0 {
			fmt.Println("unlimited")
			return nil
		}
		fmt.Println(approved.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd, allowanceCmd)
	approveCmd.Flags().Uint64("gas", 0, "gas limit，0 表示自动估算")
	approveCmd.Flags().BoolP("wait", "w", false, "等待回执")
}
