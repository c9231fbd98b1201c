// Package notify delivers one-time codes to registrants.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// Sender delivers a rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	Subject string
	Body    string
}

// CodeParams are the variables available to code email templates.
type CodeParams struct {
	AppName          string
	FirstName        string
	EventName        string
	Code             string
	ExpiresInMinutes int
}

const DefaultCodeSubject = `Your {{.EventName}} login code`

const DefaultCodeBody = `Hi {{if .FirstName}}{{.FirstName}}{{else}}there{{end}},

Your login code for {{.EventName}} is:

{{.Code}}

It expires in {{.ExpiresInMinutes}} minutes and can be used once.

If you did not request this code, you can ignore this email.

{{.AppName}}
`

// Renderer turns CodeParams into a Message.
type Renderer struct {
	subject *template.Template
	body    *template.Template
}

func NewRenderer(subject, body string) (*Renderer, error) {
	st, err := template.New("subject").Option("missingkey=error").Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	bt, err := template.New("body").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &Renderer{subject: st, body: bt}, nil
}

// MustDefaultRenderer panics only if the built-in templates fail to parse.
func MustDefaultRenderer() *Renderer {
	r, err := NewRenderer(DefaultCodeSubject, DefaultCodeBody)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(to string, p CodeParams) (Message, error) {
	var subject, body bytes.Buffer
	if err := r.subject.Execute(&subject, p); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := r.body.Execute(&body, p); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{To: to, Subject: subject.String(), Body: body.String()}, nil
}
