package email

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

type Sender interface {
	SendRoomInvitation(to, roomName, link string) error
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`
<h1>You've been invited to join {{.RoomName}}!</h1>
<p>Click the link below to accept the invitation and create your account:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>This invitation will expire in 7 days.</p>
`))

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) SendRoomInvitation(to, roomName, link string) error {
	var body bytes.Buffer
	err := invitationTemplate.Execute(&body, map[string]string{
		"RoomName": roomName,
		"Link":     link,
	})
	if err != nil {
		return fmt.Errorf("render invitation email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "You have been invited to join a chat room")
	m.SetBody("text/html", body.String())

	return s.dialer.DialAndSend(m)
}
