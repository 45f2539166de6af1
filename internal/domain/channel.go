package domain

type ChannelID int

const (
	RootChannel ChannelID = 0
	NoChannel   ChannelID = -1
)

// Channel is channel meta-data. Tree structure and membership live in core.
type Channel struct {
	ID          ChannelID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Password    string    `json:"-"`
	Position    int32     `json:"position"`
	NoEnter     bool      `json:"noenter"`
	Silent      bool      `json:"silent"`
	Temporary   bool      `json:"temporary"`
}
