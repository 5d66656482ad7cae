package email

import (
	"fmt"
	"net/smtp"
)

// smtpServer stores the address of the SMTP server which is used to send emails.
var smtpServer string

// auth holds the authentication data needed to connect to the SMTP server.
// It is initialized by the smtp.PlainAuth function with the sender's credentials.
var auth smtp.Auth

// fromEmail stores the email address used as the "From" address in the emails that are sent.
var fromEmail string

// InitEmailService initializes the email service by establishing an SMTP
// connection to the configured email server.
// It accepts two arguments:
// - sender: the email address of the sender, used as the "From" address.
// - password: the password of the sender's email account.
//
// The function sets the SMTP server address and the sender's address, builds
// the PlainAuth credentials, and dials the server once to check the
// connection. If successful it returns true; on any error it returns false
// and the error.
func InitEmailService(sender, password string) (bool, error) {
	smtpServer = "smtp.gmail.com:587"
	fromEmail = sender

	auth = smtp.PlainAuth(
		"",
		sender,
		password,
		"smtp.gmail.com",
	)

	c, err := smtp.Dial(smtpServer)
	if err != nil {
		return false, fmt.Errorf("cannot connect to the SMTP server: %v", err)
	}

	err = c.Close()
	if err != nil {
		return false, fmt.Errorf("cannot close the SMTP connection: %v", err)
	}

	return true, nil
}

// SendAchievementEmail sends one achievement notification to a friend.
// It accepts four arguments:
// - to: the email address of the recipient.
// - friendName: the recipient's display name.
// - achieverName: the display name of the user who earned the achievement.
// - achievementName: the display name of the earned achievement.
//
// Delivery is a single attempt over the established SMTP connection; the
// caller treats failures as best-effort and does not retry.
func SendAchievementEmail(to, friendName, achieverName, achievementName string) error {
	headers := make(map[string]string)
	headers["From"] = fromEmail
	headers["To"] = to
	headers["Subject"] = fmt.Sprintf("%s just earned an achievement on EcoTrace", achieverName)
	headers["MIME-version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=\"UTF-8\""

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}

	body := `
	<html>
		<head>
			<style>
				body {
					font-family: 'Lato', sans-serif;
					margin: 0;
					padding: 0;
				}
				.container {
					max-width: 600px;
					margin: 0 auto;
					padding: 10px;
					border-radius: 4px;
				}
				p {
					line-height: 1.6;
				}
			</style>
		</head>
		<body>
			<div class="container">
				<h1>Hi ` + friendName + `,</h1>
				<p><strong>` + achieverName + `</strong> just unlocked the <strong>` + achievementName + `</strong> achievement!</p>
				<p>Log today's eco-actions to keep up.</p>
			</div>
		</body>
	</html>
	`
	message += "\r\n" + body

	err := smtp.SendMail(
		smtpServer,
		auth,
		fromEmail,
		[]string{to},
		[]byte(message),
	)

	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}
