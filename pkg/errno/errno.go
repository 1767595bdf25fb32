package errno

import "errors"

// Errno 定义错误码
// 所有 sentinel 都是可比较的值类型，可以直接用 errors.Is 匹配被 %w 包装后的错误
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to its code and message
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, err.Error()
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, err.Error()
	}
	return Internal.Code, err.Error()
}

// Common Errors
var (
	OK       = Errno{Code: 0, Message: "success"}
	Internal = Errno{Code: 10001, Message: "internal error"}
)

// Bootstrap Errors (20000+), 配置/启动阶段的致命错误
var (
	ErrInvalidProxy    = Errno{Code: 20101, Message: "invalid proxy"}
	ErrWrongChainID    = Errno{Code: 20201, Message: "can not get chain id"}
	ErrWrongCoinSymbol = Errno{Code: 20202, Message: "can not get coin symbol"}
)

// Chain Errors (30000+)
var (
	ErrGasQuoteUnavailable = Errno{Code: 30101, Message: "gas quote unavailable"}
	ErrReceiptTimeout      = Errno{Code: 30201, Message: "receipt timeout"}
	ErrTransaction         = Errno{Code: 30301, Message: "transaction error"}
	ErrIncompleteParams    = Errno{Code: 30302, Message: "incomplete transaction params"}
	ErrWrongSender         = Errno{Code: 30303, Message: "sender does not match client account"}
)

// Value Errors (40000+)
var (
	ErrInvalidAmount      = Errno{Code: 40101, Message: "invalid amount"}
	ErrMalformedSignature = Errno{Code: 40201, Message: "malformed signature"}
	ErrMissingABI         = Errno{Code: 40301, Message: "cannot get ABI for contract"}
	ErrInvalidAddress     = Errno{Code: 40401, Message: "invalid address"}
)
