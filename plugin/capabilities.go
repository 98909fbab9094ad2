package plugin

// Capability names the contract a registered component satisfies.
type Capability string

const (
	CapabilitySource      Capability = "source"
	CapabilityDestination Capability = "destination"
	CapabilityFormatter   Capability = "formatter"
	CapabilityFilterer    Capability = "filterer"
)

// Capabilities lists every capability in registration order.
var Capabilities = []Capability{
	CapabilitySource,
	CapabilityDestination,
	CapabilityFormatter,
	CapabilityFilterer,
}

func (c Capability) String() string { return string(c) }
