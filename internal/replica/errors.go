package replica

import "errors"

var (
	ErrSyncFailed     = errors.New("synchronization failed")
	ErrSyncInProgress = errors.New("synchronization already in progress")
	ErrInvalidChange  = errors.New("invalid sync change")
	ErrJournal        = errors.New("sync journal error")
)
