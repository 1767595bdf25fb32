package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"evm-kit/pkg/hdwallet"
	"evm-kit/pkg/keystore"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "创建一个新的 EVM 账户",
	Long: `生成新的 BIP-39 助记词并按 BIP-44 路径派生以太坊账户。
指定 --keystore 时使用密码加密保存到文件，否则直接打印。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bits, _ := cmd.Flags().GetInt("bits")
		path, _ := cmd.Flags().GetString("path")
		output, _ := cmd.Flags().GetString("keystore")
		light, _ := cmd.Flags().GetBool("light")

		if output != "" {
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("文件 %s 已存在，请先删除或指定其他文件名", output)
			}
		}

		mnemonic, err := hdwallet.NewMnemonic(bits)
		if err != nil {
			return err
		}
		key, err := hdwallet.DeriveKey(mnemonic, "", path)
		if err != nil {
			return err
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)

		fmt.Println("---------------------------------------------------")
		fmt.Printf("地址 [%s]: %s\n", path, addr.Hex())

		if output == "" {
			fmt.Printf("助记词 (Mnemonic): \n%s\n", mnemonic)
			fmt.Println("---------------------------------------------------")
			fmt.Println("请妥善保管您的助记词！任何拥有助记词的人都可以控制该账户的所有资产。")
			return nil
		}

		password, err := newPassword()
		if err != nil {
			return err
		}
		n := keystore.StandardN
		if light {
			n = keystore.LightN
		}
		encrypted, err := keystore.Encrypt(keystore.KindMnemonic, mnemonic, password, addr.Hex(), n)
		if err != nil {
			return fmt.Errorf("加密失败: %w", err)
		}
		if err := encrypted.SaveToFile(output); err != nil {
			return fmt.Errorf("保存文件失败: %w", err)
		}
		fmt.Printf("已加密保存到 %s\n", output)
		fmt.Println("---------------------------------------------------")
		return nil
	},
}

// newPassword 读取两次密码并校验
func newPassword() (string, error) {
	password, err := readPassword("输入密码: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassword("确认密码: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("两次输入的密码不一致")
	}
	if len(password) < 6 {
		return "", errors.New("密码长度至少需要 6 位")
	}
	return password, nil
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Int("bits", 128, "熵位数 (128 = 12 词, 256 = 24 词)")
	newCmd.Flags().String("path", hdwallet.DefaultPath, "派生路径")
	newCmd.Flags().StringP("keystore", "o", "", "加密保存的文件路径")
	newCmd.Flags().Bool("light", false, "使用较低的 scrypt 参数")
}
