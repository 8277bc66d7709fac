package game

// Kind identifies one of the closed set of gameplay failure modes.
// Every Kind maps to a stable wire value the client switches on.
type Kind string

const (
	KindNicknameTaken      Kind = "NicknameTaken"
	KindSessionNotFound    Kind = "SessionNotFound"
	KindNotHost            Kind = "NotHost"
	KindNotAllowed         Kind = "NotAllowed"
	KindInvalidCard        Kind = "InvalidCard"
	KindScoreTooLow        Kind = "ScoreTooLow"
	KindVersionMismatch    Kind = "VersionMismatch"
	KindTooManyPlayers     Kind = "TooManyPlayers"
	KindGameAlreadyStarted Kind = "GameAlreadyStarted"
	KindNotEnoughPlayers   Kind = "NotEnoughPlayers"
	KindInternal           Kind = "InternalError"
)

// Error is a gameplay failure with a client-visible kind and a fallback
// message for clients that don't localize the kind themselves.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNicknameTaken      = &Error{KindNicknameTaken, "nickname already in use"}
	ErrSessionNotFound    = &Error{KindSessionNotFound, "session not found"}
	ErrNotHost            = &Error{KindNotHost, "only the host can do that"}
	ErrNotAllowed         = &Error{KindNotAllowed, "action not allowed right now"}
	ErrInvalidCard        = &Error{KindInvalidCard, "card is not in your hand"}
	ErrScoreTooLow        = &Error{KindScoreTooLow, "not enough points"}
	ErrVersionMismatch    = &Error{KindVersionMismatch, "client version does not match this session"}
	ErrTooManyPlayers     = &Error{KindTooManyPlayers, "session is full"}
	ErrGameAlreadyStarted = &Error{KindGameAlreadyStarted, "game already started"}
	ErrNotEnoughPlayers   = &Error{KindNotEnoughPlayers, "not enough players"}
	ErrInternal           = &Error{KindInternal, "internal error"}
)
