// Package abisig 把人类可读的函数签名 (例如 "approve(address,uint256)")
// 转换为最小化的 ABI 函数描述，支持嵌套 tuple 与 tuple 数组。
//
// 嵌套 tuple 按括号层级递归解析成树: f((address,(uint256,bool))) 的外层
// components 是 [address, tuple{uint256,bool}]，内层列表挂在它所属的 tuple 下，
// 而不是按提取顺序平铺分配。
package abisig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"evm-kit/pkg/errno"
)

const tupleType = "tuple"

// arraySuffix 匹配 "[]", "[3]", "[][2]" 这样的数组后缀
var arraySuffix = regexp.MustCompile(`^(\[\d*\])+$`)

// Param 是 ABI 中的一个参数类型，tuple 类型会带 Components
type Param struct {
	Name       string  `json:"name,omitempty"`
	Type       string  `json:"type"`
	Components []Param `json:"components,omitempty"`
}

// FunctionDescriptor 对应 ABI JSON 中的一个 function 片段
// Outputs 固定为 uint256: 仅凭文本签名无法得知真实返回类型
type FunctionDescriptor struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Inputs  []Param `json:"inputs"`
	Outputs []Param `json:"outputs"`
}

// Parse 解析文本签名
// 括号不平衡、闭括号之后还有内容、出现空的参数类型 (多余的逗号) 都返回 ErrMalformedSignature
func Parse(text string) (FunctionDescriptor, error) {
	text = strings.TrimSpace(text)

	// 1. 按第一个 "(" 切分函数名与参数列表
	name, rest, found := strings.Cut(text, "(")
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "),[] ") {
		return FunctionDescriptor{}, malformed(text, "invalid function name %q", name)
	}

	fd := FunctionDescriptor{
		Type:    "function",
		Name:    name,
		Inputs:  []Param{},
		Outputs: []Param{{Type: "uint256"}},
	}
	if !found {
		return fd, nil
	}

	// 2. 去掉最外层的 ")"
	if !strings.HasSuffix(rest, ")") {
		return FunctionDescriptor{}, malformed(text, "missing closing parenthesis")
	}
	args := rest[:len(rest)-1]
	if err := checkBalanced(args); err != nil {
		return FunctionDescriptor{}, malformed(text, "%v", err)
	}

	// 3. 逐层展开 tuple
	inputs, err := parseList(args)
	if err != nil {
		return FunctionDescriptor{}, malformed(text, "%v", err)
	}
	fd.Inputs = inputs
	return fd, nil
}

// parseList 按顶层逗号切分并解析每个类型
func parseList(s string) ([]Param, error) {
	params := []Param{}
	if strings.TrimSpace(s) == "" {
		return params, nil
	}

	for _, token := range splitTopLevel(s) {
		p, err := parseType(strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func parseType(token string) (Param, error) {
	if token == "" {
		return Param{}, fmt.Errorf("empty type (stray comma)")
	}

	if !strings.HasPrefix(token, "(") {
		if strings.ContainsAny(token, "() ") {
			return Param{}, fmt.Errorf("unexpected token %q", token)
		}
		if token == tupleType || strings.HasPrefix(token, tupleType+"[") {
			return Param{}, fmt.Errorf("bare %q without components", token)
		}
		return Param{Type: token}, nil
	}

	closing := matchingParen(token)
	if closing < 0 {
		return Param{}, fmt.Errorf("unbalanced parentheses in %q", token)
	}
	suffix := token[closing+1:]
	if suffix != "" && !arraySuffix.MatchString(suffix) {
		return Param{}, fmt.Errorf("unexpected %q after tuple", suffix)
	}

	components, err := parseList(token[1:closing])
	if err != nil {
		return Param{}, err
	}
	return Param{Type: tupleType + suffix, Components: components}, nil
}

// splitTopLevel 只在括号深度为 0 的逗号处切分
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// matchingParen 返回与 s[0] 的 "(" 配对的 ")" 下标
func matchingParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func checkBalanced(s string) error {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unexpected ')' at offset %d", i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	return nil
}

func malformed(text, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", errno.ErrMalformedSignature, text, fmt.Sprintf(format, args...))
}

// Signature 返回规范化的文本签名，例如 "bar((address,uint256))"
func (fd FunctionDescriptor) Signature() string {
	return fd.Name + "(" + joinTypes(fd.Inputs) + ")"
}

// Selector 返回 4 字节函数选择器
func (fd FunctionDescriptor) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(fd.Signature()))[:4])
	return sel
}

func joinTypes(params []Param) string {
	types := make([]string, len(params))
	for i, p := range params {
		if strings.HasPrefix(p.Type, tupleType) {
			types[i] = "(" + joinTypes(p.Components) + ")" + strings.TrimPrefix(p.Type, tupleType)
			continue
		}
		types[i] = p.Type
	}
	return strings.Join(types, ",")
}

// ABI 转换为 go-ethereum 的 abi.ABI，可以直接用于 Pack 调用数据
// go-ethereum 不接受匿名的 tuple 字段，这里为 components 补上 arg0, arg1 ...
func (fd FunctionDescriptor) ABI() (abi.ABI, error) {
	named := fd
	named.Inputs = nameComponents(fd.Inputs, false)
	named.Outputs = nameComponents(fd.Outputs, false)

	raw, err := json.Marshal([]FunctionDescriptor{named})
	if err != nil {
		return abi.ABI{}, err
	}
	return abi.JSON(bytes.NewReader(raw))
}

func nameComponents(params []Param, assign bool) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = p
		if assign && p.Name == "" {
			out[i].Name = fmt.Sprintf("arg%d", i)
		}
		if len(p.Components) > 0 {
			out[i].Components = nameComponents(p.Components, true)
		}
	}
	return out
}
