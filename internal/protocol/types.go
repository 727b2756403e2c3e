// Package protocol encodes and decodes the Eruption SDK control-socket
// messages.
//
// Requests and responses are closed sum types: each variant is its own Go
// type and the unexported marker method keeps the set sealed. A variant's
// Kind doubles as its oneof field number on the wire.
package protocol

import "fmt"

// Kind selects the active variant of a Request or Response.
type Kind int

const (
	KindNoop          Kind = 1
	KindStatus        Kind = 2
	KindActiveProfile Kind = 3
	KindSwitchProfile Kind = 4
	KindSetParameters Kind = 5
	KindSetCanvas     Kind = 6
	KindHotplug       Kind = 7
)

var kindNames = map[Kind]string{
	KindNoop:          "noop",
	KindStatus:        "status",
	KindActiveProfile: "active_profile",
	KindSwitchProfile: "switch_profile",
	KindSetParameters: "set_parameters",
	KindSetCanvas:     "set_canvas",
	KindHotplug:       "hotplug",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Request is one client-to-daemon message.
type Request interface {
	Kind() Kind
	isRequest()
}

// Response is one daemon-to-client message.
type Response interface {
	Kind() Kind
	isResponse()
}

// Parameter is one entry of the set_parameters value map.
type Parameter struct {
	Name  string
	Value string
}

type NoopRequest struct{}

type StatusRequest struct{}

type ActiveProfileRequest struct{}

type SwitchProfileRequest struct {
	ProfileFile string
}

// SetParametersRequest carries script parameter values in caller order.
type SetParametersRequest struct {
	ProfileFile string
	ScriptFile  string
	Parameters  []Parameter
}

type SetCanvasRequest struct {
	Canvas []byte
}

// HotplugRequest carries the raw hotplug payload (usb_vid, usb_pid).
type HotplugRequest struct {
	Payload []byte
}

func (NoopRequest) Kind() Kind          { return KindNoop }
func (StatusRequest) Kind() Kind        { return KindStatus }
func (ActiveProfileRequest) Kind() Kind { return KindActiveProfile }
func (SwitchProfileRequest) Kind() Kind { return KindSwitchProfile }
func (SetParametersRequest) Kind() Kind { return KindSetParameters }
func (SetCanvasRequest) Kind() Kind     { return KindSetCanvas }
func (HotplugRequest) Kind() Kind       { return KindHotplug }

func (NoopRequest) isRequest()          {}
func (StatusRequest) isRequest()        {}
func (ActiveProfileRequest) isRequest() {}
func (SwitchProfileRequest) isRequest() {}
func (SetParametersRequest) isRequest() {}
func (SetCanvasRequest) isRequest()     {}
func (HotplugRequest) isRequest()       {}

type NoopResponse struct{}

type StatusResponse struct {
	Description string
}

type ActiveProfileResponse struct {
	ProfileFile string
}

type SwitchProfileResponse struct {
	Switched bool
}

type SetParametersResponse struct{}

type SetCanvasResponse struct{}

type HotplugResponse struct{}

func (NoopResponse) Kind() Kind          { return KindNoop }
func (StatusResponse) Kind() Kind        { return KindStatus }
func (ActiveProfileResponse) Kind() Kind { return KindActiveProfile }
func (SwitchProfileResponse) Kind() Kind { return KindSwitchProfile }
func (SetParametersResponse) Kind() Kind { return KindSetParameters }
func (SetCanvasResponse) Kind() Kind     { return KindSetCanvas }
func (HotplugResponse) Kind() Kind       { return KindHotplug }

func (NoopResponse) isResponse()          {}
func (StatusResponse) isResponse()        {}
func (ActiveProfileResponse) isResponse() {}
func (SwitchProfileResponse) isResponse() {}
func (SetParametersResponse) isResponse() {}
func (SetCanvasResponse) isResponse()     {}
func (HotplugResponse) isResponse()       {}
