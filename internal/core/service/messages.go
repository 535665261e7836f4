package service

import (
	"fmt"
	"time"
)

const (
	codeSubject  = "Your 6-digit login code"
	resetSubject = "Password reset"
)

func codeBody(username, code string, ttl time.Duration) string {
	return fmt.Sprintf(
		"Hello %s,\n\nHere is your login code: %s\n\nIt will expire in %d minutes.",
		username, code, int(ttl.Minutes()),
	)
}

func resetBody(username, link string) string {
	return fmt.Sprintf(
		"Hello %s,\n\nTo reset your password, follow this link: %s\n"+
			"The link only works in the browser you requested it from.",
		username, link,
	)
}
