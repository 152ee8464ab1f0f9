package keystore

import "github.com/freenet/river-sub001/internal/utils"

var (
	ErrIdentityNotFound = utils.NewRiverError("identity not found")
	ErrIdentityExists   = utils.NewRiverError("identity already exists")
	ErrInvalidPassword  = utils.NewRiverError("invalid password")
	ErrCorruptIdentity  = utils.NewRiverError("corrupt identity file")
)
