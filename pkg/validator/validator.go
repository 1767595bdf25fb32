package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		// 报错时使用 mapstructure 键名，和配置文件、环境变量保持一致
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct 校验带 validate 标签的结构体
func Struct(v any) error {
	return instance().Struct(v)
}

// ErrorMsg 把校验错误转换为可读的提示
func ErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	var errMsgs []string
	for _, e := range validationErrors {
		field := strings.ToLower(trimRoot(e.Namespace()))
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能为空", field))
		case "url":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不是合法的 URL", field))
		case "hexadecimal":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是十六进制", field))
		case "gt":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须大于 %s", field, param))
		case "gte":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能小于 %s", field, param))
		case "lte":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 不能大于 %s", field, param))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("%s 必须是 [%s] 之一", field, param))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("%s 校验失败 (%s)", field, tag))
		}
	}
	return strings.Join(errMsgs, "; ")
}

// trimRoot 去掉顶层结构体名，Config.network.tx_type -> network.tx_type
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
