package mail

import (
	"fmt"
	"html"
)

// PasswordReset builds the message carrying the one-time reset link.
func PasswordReset(to, name, resetURL string) Message {
	text := fmt.Sprintf(
		"Hi %s,\n\nThere was a request to change your password!\nIf you did not make this request then please ignore this email.\nOtherwise, use this link to choose a new password: %s\n",
		name, resetURL,
	)
	body := fmt.Sprintf(
		`<div style="background: #f7f7f7; color: #333; padding: 50px; text-align: left;">
<h3>Hi %s,</h3>
<p>There was a request to change your password!</p>
<p>If you did not make this request then please ignore this email.</p>
<p>Otherwise, use this link to choose a new password: <a href="%s">Reset my password</a></p>
</div>`,
		html.EscapeString(name), html.EscapeString(resetURL),
	)

	return Message{
		To:      to,
		Subject: "Your password reset token (valid for only 10 mins)",
		Text:    text,
		HTML:    body,
	}
}
