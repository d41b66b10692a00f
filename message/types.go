// Package message carries protocol trace messages at two levels of
// detail: raw wire frames and decoded exchanges.
package message

type Type int

const (
	TypeDecoded Type = iota
	TypeRaw
)

type Message interface {
	String() string
	Type() Type
}
