package ws

import "fmt"

type MessageType byte

const (
	DataMessage   MessageType = 1
	BinaryMessage MessageType = 2
	CloseMessage  MessageType = 8
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
)

func (t MessageType) String() string {
	switch t {
	case DataMessage:
		return "data"
	case BinaryMessage:
		return "binary"
	case CloseMessage:
		return "close"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Message is the payload carried by every event a Conn emits.
// Close messages carry the close code sent by the peer (0 when there was none) and the close reason.
type Message struct {
	Type MessageType
	Data []byte
	Code int
	Err  error
}

func (m Message) String() string {
	if m.Type == CloseMessage {
		return fmt.Sprintf("Message{type=%s,code=%d,data=%s,err=%v}", m.Type, m.Code, m.Data, m.Err)
	}
	return fmt.Sprintf("Message{type=%s,data=%s}", m.Type, m.Data)
}

func NewMessage(mt MessageType, data []byte) Message {
	return Message{Type: mt, Data: data}
}

func NewDataMessage(data []byte) Message {
	return NewMessage(DataMessage, data)
}

func NewBinaryMessage(data []byte) Message {
	return NewMessage(BinaryMessage, data)
}

func NewPingMessage(data []byte) Message {
	return NewMessage(PingMessage, data)
}

func NewPongMessage(data []byte) Message {
	return NewMessage(PongMessage, data)
}

func NewCloseMessage(code int, data []byte, reason error) Message {
	return Message{Type: CloseMessage, Data: data, Code: code, Err: reason}
}
