package identity

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Normalize 规范化地址表示
// 合法的十六进制地址转为EIP-55校验和格式，其余标识符原样保留（演示环境
// 允许非链上地址作为参与方标识）。
func Normalize(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}

// Same 调用方身份精确匹配，无委托关系
func Same(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(Normalize(a), Normalize(b))
}
