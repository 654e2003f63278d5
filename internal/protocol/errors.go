package protocol

const (
	// Protocol/transport validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// The chunk's support volume is not fully resident yet; retry after the
	// window catches up.
	ErrNotLoaded = "E_NOT_LOADED"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest: {},
	ErrNotLoaded:  {},
	ErrInternal:   {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
