package message

// Decoded is a trace message describing an exchange in protocol terms.
type Decoded struct {
	Value string
}

func NewDecoded(value string) Decoded {
	return Decoded{Value: value}
}

func (m Decoded) String() string {
	return m.Value
}

func (m Decoded) Type() Type {
	return TypeDecoded
}
