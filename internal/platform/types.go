package platform

import "time"

type Role struct {
	ID          string
	Name        string
	Color       int
	Position    int
	Permissions int64
	Hoist       bool
	Mentionable bool
	Managed     bool
}

type ChannelType uint8

const (
	ChannelText ChannelType = iota
	ChannelVoice
	ChannelCategory
)

type Overwrite struct {
	TargetID   string
	TargetType string // "role" or "member"
	Allow      int64
	Deny       int64
}

type Channel struct {
	ID          string
	Name        string
	Type        ChannelType
	ParentID    string
	Position    int
	Topic       string
	SlowmodeSec int
	NSFW        bool
	Bitrate     int
	UserLimit   int
	Overwrites  []Overwrite
}

type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Timestamp time.Time
}
