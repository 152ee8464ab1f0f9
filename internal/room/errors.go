package room

import "github.com/freenet/river-sub001/internal/utils"

var (
	ErrEncodeFailed     = utils.NewRiverError("state encoding failed")
	ErrDecodeFailed     = utils.NewRiverError("state decoding failed")
	ErrBadParameters    = utils.NewRiverError("invalid room parameters")
	ErrSchemaVersion    = utils.NewRiverError("unrecognized state schema version")
	ErrBadConfiguration = utils.NewRiverError("invalid configuration")
	ErrBadMember        = utils.NewRiverError("invalid member record")
	ErrBadBan           = utils.NewRiverError("invalid ban record")
	ErrBadMemberInfo    = utils.NewRiverError("invalid member info record")
	ErrBadMessage       = utils.NewRiverError("invalid message record")
	ErrBadUpgrade       = utils.NewRiverError("invalid upgrade record")
)
