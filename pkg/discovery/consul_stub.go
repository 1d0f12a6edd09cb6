//go:build !consul

package discovery

import (
	"fmt"
	"log"
)

// Enabled returns false when the consul build tag is not present.
func Enabled() bool { return false }

// Resolve fails without the consul tag; callers fall back to the configured
// or default base URL.
func Resolve(addr, service string) (string, error) {
	log.Printf("consul discovery requested (addr=%s service=%s) but consul build tag not enabled", addr, service)
	return "", fmt.Errorf("consul discovery not built in")
}
