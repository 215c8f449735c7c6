package nntp

import (
	"errors"
	"fmt"
	"net/textproto"
)

// Sentinel errors mapped from NNTP response codes. Callers match them
// with errors.Is; the wrapped message keeps the server's exact text.
var (
	ErrNoSuchGroup      = errors.New("nntp: no such group")
	ErrNoGroupSelected  = errors.New("nntp: no group selected")
	ErrNoSuchArticle    = errors.New("nntp: no such article")
	ErrAuthRequired     = errors.New("nntp: authentication required")
	ErrAuthRejected     = errors.New("nntp: authentication rejected")
	ErrPostingNotAllowed = errors.New("nntp: posting not allowed")
	ErrPostingFailed    = errors.New("nntp: posting failed")
	ErrTempUnavail      = errors.New("nntp: service temporarily unavailable")
	ErrUnsupported      = errors.New("nntp: command not supported")
)

// mapError rewrites textproto code errors into the package sentinels so
// callers can branch without parsing status codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var te *textproto.Error
	if !errors.As(err, &te) {
		return err
	}
	switch te.Code {
	case 411:
		return fmt.Errorf("%w: %s", ErrNoSuchGroup, te.Msg)
	case 412:
		return fmt.Errorf("%w: %s", ErrNoGroupSelected, te.Msg)
	case 420, 423, 430:
		return fmt.Errorf("%w: %s", ErrNoSuchArticle, te.Msg)
	case 480:
		return fmt.Errorf("%w: %s", ErrAuthRequired, te.Msg)
	case 481, 482:
		return fmt.Errorf("%w: %s", ErrAuthRejected, te.Msg)
	case 440:
		return fmt.Errorf("%w: %s", ErrPostingNotAllowed, te.Msg)
	case 441:
		return fmt.Errorf("%w: %s", ErrPostingFailed, te.Msg)
	case 400:
		return fmt.Errorf("%w: %s", ErrTempUnavail, te.Msg)
	case 500, 501, 503:
		return fmt.Errorf("%w: %s", ErrUnsupported, te.Msg)
	}
	return err
}
