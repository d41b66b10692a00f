package message

// Raw is a trace message showing bytes as they travel on the wire.
type Raw struct {
	Value string
}

func NewRaw(value string) Raw {
	return Raw{Value: value}
}

func (m Raw) String() string {
	return m.Value
}

func (m Raw) Type() Type {
	return TypeRaw
}
