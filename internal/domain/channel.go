package domain

// ChannelKind is the medium a contact channel is verified over
type ChannelKind string

const (
	ChannelPhone ChannelKind = "phone"
	ChannelEmail ChannelKind = "email"
)

// Field returns the request field that carries a channel of this kind
func (k ChannelKind) Field() string {
	if k == ChannelEmail {
		return "email"
	}
	return "phone"
}
