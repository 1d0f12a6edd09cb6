//go:build consul

package discovery

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Enabled returns true when the consul build tag is on.
func Enabled() bool { return true }

// Resolve looks up a passing instance of the named service in the Consul
// health catalog and returns its base URL.
func Resolve(addr, service string) (string, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return "", fmt.Errorf("consul client: %w", err)
	}
	entries, _, err := cli.Health().Service(service, "", true, nil)
	if err != nil {
		return "", fmt.Errorf("consul health query: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no healthy instances of %s", service)
	}
	svc := entries[0].Service
	host := svc.Address
	if host == "" {
		host = entries[0].Node.Address
	}
	return fmt.Sprintf("http://%s:%d", host, svc.Port), nil
}
