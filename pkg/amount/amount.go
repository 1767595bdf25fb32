package amount

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"evm-kit/pkg/errno"
)

// DefaultDecimals 原生币 (ETH/BNB/MATIC...) 的精度
const DefaultDecimals int32 = 18

// TokenAmount 同时表示一个金额的最小单位 (Wei) 和人类可读单位 (Ether)
// wei 为 true 时 amount 已经是最小单位，否则是需要乘以 10^decimals 的小数
type TokenAmount struct {
	amount   decimal.Decimal
	decimals int32
	wei      bool
}

// New 创建 TokenAmount
// value 支持 string / int / int64 / uint64 / float64 / *big.Int / decimal.Decimal
func New(value any, decimals int32, wei bool) (TokenAmount, error) {
	d, err := toDecimal(value)
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{amount: d, decimals: decimals, wei: wei}, nil
}

// MustNew 同 New，解析失败时 panic，只用于常量
func MustNew(value any, decimals int32, wei bool) TokenAmount {
	a, err := New(value, decimals, wei)
	if err != nil {
		panic(err)
	}
	return a
}

// FromWei 用最小单位的整数构造
func FromWei(v *big.Int, decimals int32) TokenAmount {
	if v == nil {
		v = new(big.Int)
	}
	return TokenAmount{amount: decimal.NewFromBigInt(v, 0), decimals: decimals, wei: true}
}

// Wei 返回最小单位整数 (截断小数部分)
func (a TokenAmount) Wei() *big.Int {
	if a.wei {
		return a.amount.BigInt()
	}
	return a.amount.Shift(a.decimals).BigInt()
}

// Ether 返回人类可读的小数形式
func (a TokenAmount) Ether() decimal.Decimal {
	if a.wei {
		return a.amount.Shift(-a.decimals)
	}
	return a.amount
}

func (a TokenAmount) Decimals() int32 {
	return a.decimals
}

// IsWei 表示构造时传入的是否是最小单位
func (a TokenAmount) IsWei() bool {
	return a.wei
}

func (a TokenAmount) IsZero() bool {
	return a.amount.IsZero()
}

func (a TokenAmount) String() string {
	return a.Ether().String()
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case *big.Int:
		if v == nil {
			return decimal.Zero, fmt.Errorf("%w: nil", errno.ErrInvalidAmount)
		}
		return decimal.NewFromBigInt(v, 0), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", errno.ErrInvalidAmount, v)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", errno.ErrInvalidAmount, v)
		}
		// 经过字符串转换，避免 0.1 之类的二进制误差进入金额
		return toDecimal(decimal.NewFromFloat(v).String())
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", errno.ErrInvalidAmount, value)
	}
}
