package capture

import "errors"

var (
	// ErrInvalidState is returned when an action is not available in the
	// session's current state.
	ErrInvalidState = errors.New("capture: action not allowed in current state")

	// ErrDeviceUnavailable wraps camera acquisition and read failures.
	ErrDeviceUnavailable = errors.New("capture: camera unavailable")

	// ErrNoSink is returned by Submit when the session has nowhere to send the frame.
	ErrNoSink = errors.New("capture: no sink configured")
)

// DeviceErrorMessage is shown to the applicant while the session is in StateError.
const DeviceErrorMessage = "Cannot access camera. Please check your permissions."
