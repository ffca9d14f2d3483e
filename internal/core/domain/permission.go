package domain

type PermissionStatus string

const (
	PermissionUndetermined PermissionStatus = "undetermined"
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
)

type Capability string

const (
	CapabilityCamera     Capability = "camera"
	CapabilityMicrophone Capability = "microphone"
)

// PermissionState is the permission gate's view of both capabilities.
type PermissionState struct {
	Camera     PermissionStatus `json:"camera"`
	Microphone PermissionStatus `json:"microphone"`
	AllGranted bool             `json:"all_granted"`
	IsLoading  bool             `json:"is_loading"`
}

// WithStatuses sets both statuses and recomputes AllGranted.
func (s PermissionState) WithStatuses(camera, microphone PermissionStatus) PermissionState {
	s.Camera = camera
	s.Microphone = microphone
	s.AllGranted = camera == PermissionGranted && microphone == PermissionGranted
	return s
}
