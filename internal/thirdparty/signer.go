package thirdparty

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
)

// SignHMAC 生成 HMAC-SHA256 签名（hex）
func SignHMAC(secret string, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRequest 接收方校验签名；会读取并消费 r.Body，返回读取到的 body
func VerifyRequest(secret string, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false
	}
	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return body, false
	}
	want := SignHMAC(secret, buildCanonical(r.Method, r.URL.Path, ts, r.Header.Get(HeaderNonce), hashHex(body)))
	return body, hmac.Equal([]byte(want), []byte(r.Header.Get(HeaderSignature)))
}
