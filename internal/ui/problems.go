package ui

import (
	"strings"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

// ProblemMessage returns the user-facing message for a problem kind. Conflict
// shows the server's detail when one was sent.
func ProblemMessage(kind api.ProblemKind, detail string) string {
	switch kind {
	case api.KindTimeout:
		return "The server took too long to respond. Try again."
	case api.KindCannotConnect:
		return "Can't reach the server. Check your connection."
	case api.KindServer:
		return "The server ran into a problem. Try again later."
	case api.KindUnauthorized:
		return "Your session has ended. Please log in again."
	case api.KindNotAllowed:
		return "Please verify your email before logging in."
	case api.KindForbidden:
		return "You don't have permission to do that."
	case api.KindNotFound:
		return "That item no longer exists."
	case api.KindConflict:
		if d := strings.TrimSpace(detail); d != "" {
			return d
		}
		return "That already exists."
	case api.KindRejected:
		return "The server rejected the request. Check your input."
	case api.KindBadData:
		return "The server sent a response we couldn't read."
	default:
		return "Something went wrong. Try again."
	}
}

// describeProblem renders p for the status banner.
func describeProblem(p *api.Problem) string {
	if p == nil {
		return ""
	}
	return ProblemMessage(p.Kind, p.Detail)
}
