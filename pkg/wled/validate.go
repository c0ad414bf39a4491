package wled

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var hostnameChars = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)

// shell metacharacters and quoting characters a host string must never carry
const dangerousChars = ";&|$`(){}[]<>\"'"

// ValidateHost checks a user supplied hostname or IP before it is used to
// build device URLs. IPs are restricted to addresses that can plausibly be a
// LAN device: loopback, link-local and private ranges. The returned error
// message is stable and suitable for display.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host is empty")
	}
	if len(host) > 253 {
		return fmt.Errorf("host is longer than 253 characters")
	}
	if strings.Contains(strings.ToLower(host), "://") {
		return fmt.Errorf("host must not contain a protocol")
	}
	if strings.ContainsAny(host, dangerousChars) || strings.ContainsAny(host, " \t\n\r") {
		return fmt.Errorf("host contains invalid characters")
	}
	if strings.Contains(host, "../") || strings.Contains(host, "..\\") {
		return fmt.Errorf("host must not contain path traversal")
	}

	if ip := net.ParseIP(host); ip != nil {
		return validateIP(ip)
	}
	return validateHostname(host)
}

func validateIP(ip net.IP) error {
	switch {
	case ip.IsUnspecified():
		return fmt.Errorf("IP address is unspecified")
	case ip.IsMulticast():
		return fmt.Errorf("IP address is a multicast address")
	case ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsPrivate():
		return nil
	default:
		return fmt.Errorf("IP address is not a local network address")
	}
}

func validateHostname(host string) error {
	if !hostnameChars.MatchString(host) {
		return fmt.Errorf("hostname contains invalid characters")
	}
	if strings.Contains(host, "..") {
		return fmt.Errorf("hostname contains consecutive dots")
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return fmt.Errorf("hostname starts or ends with a dot")
	}
	if strings.HasPrefix(host, "-") || strings.HasSuffix(host, "-") {
		return fmt.Errorf("hostname starts or ends with a hyphen")
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) > 63 {
			return fmt.Errorf("hostname label is longer than 63 characters")
		}
	}
	return nil
}
