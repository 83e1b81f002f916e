package models

// TargetKind distinguishes the two probe target modes.
type TargetKind string

const (
	TargetGateway TargetKind = "gateway"
	TargetCustom  TargetKind = "custom"
)

// Target identifies what the engine probes. Host is set only for custom
// targets; the gateway target follows whatever gateway is currently tracked.
type Target struct {
	Kind TargetKind `json:"kind"`
	Host string     `json:"host,omitempty"`
}

// GatewayTarget returns the default-gateway target.
func GatewayTarget() Target {
	return Target{Kind: TargetGateway}
}

// CustomTarget returns a target probing the given user-supplied host.
func CustomTarget(host string) Target {
	return Target{Kind: TargetCustom, Host: host}
}

// Label names the target for logs and tooltips.
func (t Target) Label() string {
	if t.Kind == TargetCustom {
		return t.Host
	}
	return "gateway"
}
