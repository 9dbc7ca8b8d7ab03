package service

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"mobility-finance-engine/pkg/errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// newRecordID 基于输入与时间戳的Keccak256哈希生成确定性记录ID，取前8字节
func newRecordID(ts time.Time, parts ...string) string {
	payload := strings.Join(parts, ":") + fmt.Sprintf(":%d", ts.UnixNano())
	hash := crypto.Keccak256([]byte(payload))
	return hex.EncodeToString(hash[:8])
}

// parseAmount 解析十进制金额字符串，必须为正整数
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New(errors.ErrInvalidInput, "invalid amount: "+s, nil)
	}
	if amount.Sign() <= 0 {
		return nil, errors.New(errors.ErrInvalidInput, "amount must be positive: "+s, nil)
	}
	return amount, nil
}

// parseStored 解析库中金额字段，空串视为0
func parseStored(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return amount
}
