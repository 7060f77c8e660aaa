package backtest

import "fmt"

// ConfigError reports strategy or account parameters that can never
// produce a valid simulation. Nothing runs when it is returned.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("backtest config: %s", e.Reason)
}

// InsufficientDataError reports a bar series too short for the chosen
// strategy's indicator windows.
type InsufficientDataError struct {
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d bars, have %d", e.Required, e.Available)
}
