package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// defaultPorts are used when a service URL has no explicit port.
var defaultPorts = map[string]string{
	"https":     "443",
	"http":      "80",
	"redis":     "6379",
	"rediss":    "6379",
	"kafka":     "9092",
	"mysql":     "3306",
	"postgres":  "5432",
	"sqlserver": "1433",
}

// ServiceAddress turns a service URL or a bare host:port into a dialable
// address.
func ServiceAddress(serviceURL string) (string, error) {
	if !strings.Contains(serviceURL, "://") {
		host, port, err := net.SplitHostPort(serviceURL)
		if err != nil {
			return "", fmt.Errorf("invalid address %q: %w", serviceURL, err)
		}
		return net.JoinHostPort(host, port), nil
	}

	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := parsedURL.Hostname()
	port := parsedURL.Port()
	if host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", serviceURL)
	}

	// Default ports if not specified
	if port == "" {
		var ok bool
		if port, ok = defaultPorts[parsedURL.Scheme]; !ok {
			port = "80"
		}
	}

	return net.JoinHostPort(host, port), nil
}

// PingService checks if a service is reachable at the given URL or host:port
func PingService(serviceURL string, timeout time.Duration) error {
	address, err := ServiceAddress(serviceURL)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}
