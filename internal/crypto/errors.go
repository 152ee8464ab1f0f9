package crypto

import "github.com/freenet/river-sub001/internal/utils"

var (
	ErrSigningFailed = utils.NewRiverError("signing failed")
	ErrBadKey        = utils.NewRiverError("invalid key provided")
	ErrBadID         = utils.NewRiverError("invalid identifier")
)
