package pipeline

import (
	"fmt"
	"strings"
)

// BrokerUnavailableError is returned by Connect when no session could be
// established with any of the brokers.
type BrokerUnavailableError struct {
	Brokers []string
	Err     error
}

func (e *BrokerUnavailableError) Error() string {
	return fmt.Sprintf("broker unavailable (%s): %v", strings.Join(e.Brokers, ","), e.Err)
}

func (e *BrokerUnavailableError) Unwrap() error {
	return e.Err
}
