package switcher

import "errors"

// Sentinel errors for the switcher. Check with errors.Is.
var (
	// ErrUnsupportedLink is returned for endpoint combinations that cannot
	// be connected, such as stream to stream.
	ErrUnsupportedLink = errors.New("switcher: unsupported link")

	// ErrProfileSwitchInProgress is returned when a profile switch is
	// requested while another one is still being carried out.
	ErrProfileSwitchInProgress = errors.New("switcher: profile switch in progress")

	// ErrDeviceNotReady is returned when a device has no host object even
	// after its profile was activated.
	ErrDeviceNotReady = errors.New("switcher: device not ready")

	// ErrActivationFailed is returned when a profile or port switch fails.
	ErrActivationFailed = errors.New("switcher: activation failed")

	// ErrNoMux is returned when a node refers to an unknown combine sink.
	ErrNoMux = errors.New("switcher: no such mux")

	// ErrNoLoop is returned when a bridged device has no loopback.
	ErrNoLoop = errors.New("switcher: no such loop")
)
