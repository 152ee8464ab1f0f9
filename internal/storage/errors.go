package storage

import "github.com/freenet/river-sub001/internal/utils"

var (
	ErrRoomNotFound  = utils.NewRiverError("room not found")
	ErrArchiveQueue  = utils.NewRiverError("archive write queue full")
	ErrArchiveClosed = utils.NewRiverError("archive manager stopped")
)
