package watlow

import "github.com/numat/watlow/message"

// ProtocolPort receives protocol traffic traces from the simulator.
type ProtocolPort interface {
	InfoX(m message.Message)
	Info(msg string)

	// Println logs the output even when it's muted
	Println(msg string)

	Separator()
	Mute()
	Unmute()
	Toggle()
}
