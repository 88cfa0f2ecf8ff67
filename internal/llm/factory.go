package llm

import "fmt"

// driverCapabilities lists what each driver can be configured to do.
var driverCapabilities = map[string][]Capability{
	"openai":       {CapabilityText, CapabilityVision, CapabilityImage},
	"anthropic":    {CapabilityText, CapabilityVision},
	"xai":          {CapabilityText, CapabilityVision, CapabilityImage},
	"pollinations": {CapabilityImage},
}

// DriverSupports reports whether driver can serve capability c.
// Unknown drivers support nothing.
func DriverSupports(driver string, c Capability) bool {
	for _, have := range driverCapabilities[driver] {
		if have == c {
			return true
		}
	}
	return false
}

// DriverCapabilities returns a copy of everything driver can serve.
func DriverCapabilities(driver string) []Capability {
	return append([]Capability(nil), driverCapabilities[driver]...)
}

// KnownDriver reports whether driver has an adapter.
func KnownDriver(driver string) bool {
	_, ok := driverCapabilities[driver]
	return ok
}

// NewAdapter creates an adapter for a descriptor.
// Dispatches to the appropriate constructor based on d.Driver.
func NewAdapter(d Descriptor) (Adapter, error) {
	switch d.Driver {
	case "openai":
		return NewOpenAIAdapter(d), nil
	case "anthropic":
		return NewAnthropicAdapter(d), nil
	case "xai":
		return NewXAIAdapter(d), nil
	case "pollinations":
		return NewPollinationsAdapter(d), nil
	default:
		return nil, fmt.Errorf("unknown provider driver: %s", d.Driver)
	}
}
