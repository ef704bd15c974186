package validation

const (
	MaxTitleLength       = 200
	MaxNameLength        = 120
	MaxMessageLength     = 1000
	MaxEmailLength       = 254
	MaxInviteCodeLength  = 120
	MaxPresentNameLength = 200
)
