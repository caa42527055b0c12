package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Upstream and delivery errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrNoMatch             = fmt.Errorf("nothing found")
	ErrDownloadFailed      = fmt.Errorf("download failed")
	ErrDeliveryFailure     = fmt.Errorf("delivery failed")

	// Session errors
	ErrInvalidToken     = fmt.Errorf("invalid action token")
	ErrProfileNotFound  = fmt.Errorf("profile not found")
	ErrNotEnoughHistory = fmt.Errorf("not enough download history")
	ErrUnknownRequest   = fmt.Errorf("unknown request kind")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
