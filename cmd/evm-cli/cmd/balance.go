package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"evm-kit/pkg/client"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "查询原生币或 ERC-20 余额",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenAddr, _ := cmd.Flags().GetString("token")

		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		var owner *common.Address
		if len(args) == 1 {
			addr, err := client.ChecksumAddress(args[0])
			if err != nil {
				return err
			}
			owner = &addr
		}

		var token client.ContractRef
		symbol := c.Network.CoinSymbol
		if tokenAddr != "" {
			ref, err := client.Address(tokenAddr)
			if err != nil {
				return err
			}
			token = ref
			symbol = common.Address(ref).Hex()
		}

		balance, err := c.Wallet.Balance(cmd.Context(), token, owner)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", balance.String(), symbol)
		return nil
	},
}

var nonceCmd = &cobra.Command{
	Use:   "nonce [address]",
	Short: "查询 pending nonce",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		var owner *common.Address
		if len(args) == 1 {
			addr, err := client.ChecksumAddress(args[0])
			if err != nil {
				return err
			}
			owner = &addr
		}
		n, err := c.Wallet.Nonce(cmd.Context(), owner)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd, nonceCmd)
	balanceCmd.Flags().StringP("token", "t", "", "ERC-20 合约地址，不填查询原生币")
}
