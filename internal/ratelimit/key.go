package ratelimit

// UnknownClient stands in for a client whose address could not be resolved.
const UnknownClient = "unknown"

// ClientKey builds the identity a client is counted under from its network
// address and user agent. A missing address still yields a stable key.
func ClientKey(ip, userAgent string) string {
	if ip == "" {
		ip = UnknownClient
	}

	return ip + ":" + userAgent
}
