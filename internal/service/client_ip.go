package service

import (
	"net"
	"net/http"
	"strings"
)

// maxClientIPLength 与 access_logs.ip_address 的列宽一致。
const maxClientIPLength = 64

// clientIPHeaders 按优先级排列的代理头。
var clientIPHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_CLIENT_IP",
	"HTTP_X_FORWARDED_FOR",
}

// ClientIP 解析请求方的真实 IP：依次检查代理头，空值或 unknown 会被跳过，
// 最后回退到连接地址。多级代理的逗号链只取第一个地址，结果至多 64 字节。
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	ip := ""
	for _, header := range clientIPHeaders {
		candidate := strings.TrimSpace(r.Header.Get(header))
		if candidate != "" && !strings.EqualFold(candidate, "unknown") {
			ip = candidate
			break
		}
	}

	if ip == "" {
		ip = remoteHost(r.RemoteAddr)
	}

	if idx := strings.Index(ip, ","); idx >= 0 {
		ip = strings.TrimSpace(ip[:idx])
	}
	// 代理头由客户端控制，超长的值会让写入失败。
	return truncateUTF8(ip, maxClientIPLength)
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
