package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const githubSignaturePrefix = "sha256="

// SignPayload 计算 GitHub webhook 的 X-Hub-Signature-256 头
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return githubSignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 常量时间比较签名，secret 为空时一律拒绝
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" || !strings.HasPrefix(header, githubSignaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(SignPayload(secret, body)), []byte(header))
}
