package binding

// Kind identifies one ONVIF service surface.
type Kind uint8

const (
	// KindDevice is the device management service, present on every device.
	KindDevice Kind = iota

	// KindMedia is the media profile and stream service.
	KindMedia

	// KindEvents is the event and pull-point subscription service.
	KindEvents

	// KindPTZ is the pan/tilt/zoom service.
	KindPTZ

	// KindImaging is the imaging settings service.
	KindImaging

	kindCount
)

// String returns the kind name.
func (k Kind) String() string {
	names := []string{"device", "media", "events", "ptz", "imaging"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// AllKinds returns every known kind in declaration order.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := KindDevice; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
