package media

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `xml:"Width"`
	Height int `xml:"Height"`
}

// Bounds is the cropped region a video source configuration captures.
type Bounds struct {
	X      int `xml:"x,attr"`
	Y      int `xml:"y,attr"`
	Width  int `xml:"width,attr"`
	Height int `xml:"height,attr"`
}

// VideoSourceConfig selects the capture region of one physical source.
type VideoSourceConfig struct {
	Token       string `xml:"token,attr"`
	Name        string `xml:"Name"`
	SourceToken string `xml:"SourceToken"`
	Bounds      Bounds `xml:"Bounds"`
}

// RateControl bounds the encoder output.
type RateControl struct {
	FrameRateLimit   int `xml:"FrameRateLimit"`
	EncodingInterval int `xml:"EncodingInterval"`
	BitrateLimit     int `xml:"BitrateLimit"`
}

// VideoEncoderConfig describes one encoder setup.
type VideoEncoderConfig struct {
	Token       string       `xml:"token,attr"`
	Name        string       `xml:"Name"`
	Encoding    string       `xml:"Encoding"`
	Resolution  Resolution   `xml:"Resolution"`
	Quality     float64      `xml:"Quality"`
	RateControl *RateControl `xml:"RateControl"`
}

// Profile is one media profile: a named pairing of source and encoder.
type Profile struct {
	Token        string              `xml:"token,attr"`
	Fixed        bool                `xml:"fixed,attr"`
	Name         string              `xml:"Name"`
	VideoSource  *VideoSourceConfig  `xml:"VideoSourceConfiguration"`
	VideoEncoder *VideoEncoderConfig `xml:"VideoEncoderConfiguration"`
}

// VideoSource is one physical capture source.
type VideoSource struct {
	Token      string     `xml:"token,attr"`
	Framerate  float64    `xml:"Framerate"`
	Resolution Resolution `xml:"Resolution"`
}

// StreamProtocol selects the delivery mode of a stream URI.
type StreamProtocol uint8

const (
	// StreamRTPUnicast requests an RTSP unicast stream.
	StreamRTPUnicast StreamProtocol = iota

	// StreamRTPMulticast requests a multicast stream.
	StreamRTPMulticast
)

// String returns the ONVIF stream setup name.
func (p StreamProtocol) String() string {
	if p == StreamRTPMulticast {
		return "RTP-Multicast"
	}
	return "RTP-Unicast"
}

// transport returns the lower-level transport protocol for the setup.
func (p StreamProtocol) transport() string {
	if p == StreamRTPMulticast {
		return "UDP"
	}
	return "RTSP"
}
