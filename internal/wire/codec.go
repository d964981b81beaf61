package wire

import "encoding/json"

// EncodeOutbound marshals an outbound streaming frame.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, NewError(KindParse, "wire: encode "+msg.Type, err)
	}
	return data, nil
}

// DecodeInbound parses a server frame and validates the fields its type
// requires. Unknown types are a format error so the channel can log and
// drop them without touching the registry.
func DecodeInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, NewError(KindParse, "wire: decode frame", err)
	}

	switch msg.Type {
	case MsgConnected, MsgSessionExpired:
		// No payload beyond the discriminator.
	case MsgSessionCreated:
		if msg.SessionID == "" || msg.CommandID == "" {
			return nil, Errorf(KindResponseFormat, "wire: decode session_created", "missing sessionId or commandId")
		}
	case MsgCommandOutput:
		if msg.CommandID == "" {
			return nil, Errorf(KindResponseFormat, "wire: decode command_output", "missing commandId")
		}
	case MsgCommandComplete:
		if msg.CommandID == "" {
			return nil, Errorf(KindResponseFormat, "wire: decode command_complete", "missing commandId")
		}
	case MsgCommandError:
		if msg.CommandID == "" {
			return nil, Errorf(KindResponseFormat, "wire: decode command_error", "missing commandId")
		}
	case "":
		return nil, Errorf(KindResponseFormat, "wire: decode frame", "missing type discriminator")
	default:
		return nil, Errorf(KindResponseFormat, "wire: decode frame", "unknown type %q", msg.Type)
	}

	return &msg, nil
}
