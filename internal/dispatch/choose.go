package dispatch

// Transport identifies which channel a command is sent on.
type Transport int

const (
	// TransportRest is the stateless request/response channel.
	TransportRest Transport = iota
	// TransportStream is the persistent streaming channel.
	TransportStream
)

func (t Transport) String() string {
	if t == TransportStream {
		return "stream"
	}
	return "rest"
}

// ChooseTransport picks the channel for a command. The streaming channel is
// used only when it is connected and the caller wants incremental output;
// non-streaming callers go straight to the request/response channel to keep
// needless traffic off the stream.
func ChooseTransport(streamConnected, hasStreamingCallback bool) Transport {
	if streamConnected && hasStreamingCallback {
		return TransportStream
	}
	return TransportRest
}
