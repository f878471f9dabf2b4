package token

import (
	"crypto/rand"
	"encoding/hex"
)

// New 生成 32 字节随机 token（hex 编码，64 个字符）。
// 邮箱验证、密码重置、session id 都用它。
func New() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand 失败说明系统熵源坏了，没有可降级的路径
		panic("token: rand.Read: " + err.Error())
	}
	return hex.EncodeToString(b)
}
