package types

import "time"

// RequestConfig bounds the popup broker. Timeouts differ by flow: hardware
// wallet signing needs minutes while a regular confirmation gets seconds.
type RequestConfig struct {
	RequestQueueSize    int
	DefaultPopupTimeout time.Duration
	HardwareSignTimeout time.Duration
	ClearInterval       time.Duration
}

func DefaultRequestConfig() *RequestConfig {
	return &RequestConfig{
		RequestQueueSize:    30,
		DefaultPopupTimeout: time.Second * 10,
		HardwareSignTimeout: time.Minute * 5,
		ClearInterval:       time.Minute * 5,
	}
}

var signKinds = map[PopupKind]struct{}{
	PopupSignMessage:     {},
	PopupSendTransaction: {},
	PopupApproveSpend:    {},
}

// PopupTimeout returns the wait budget for a popup of the given kind.
// Hardware applies to signing flows only.
func (c *RequestConfig) PopupTimeout(kind PopupKind, hardware bool) time.Duration {
	if hardware {
		if _, ok := signKinds[kind]; ok {
			return c.HardwareSignTimeout
		}
	}
	return c.DefaultPopupTimeout
}

// MaxPopupTimeout is the upper bound used by the pending-request sweeper.
func (c *RequestConfig) MaxPopupTimeout() time.Duration {
	if c.HardwareSignTimeout > c.DefaultPopupTimeout {
		return c.HardwareSignTimeout
	}
	return c.DefaultPopupTimeout
}

// AutoCloseConfig drives the single popup auto-close timer after a mutating
// action resolves: a short delay on success, a longer one after a validation
// error, and a fallback auto-cancel for confirmations that never settle.
type AutoCloseConfig struct {
	SuccessDelay    time.Duration
	ErrorDelay      time.Duration
	PendingFallback time.Duration
}

func DefaultAutoCloseConfig() *AutoCloseConfig {
	return &AutoCloseConfig{
		SuccessDelay:    time.Second * 4,
		ErrorDelay:      time.Second * 10,
		PendingFallback: time.Minute * 8,
	}
}
