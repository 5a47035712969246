package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/wneessen/go-mail"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

const defaultEmailSubject = "file delivery"

type emailFactory struct{}

func init() {
	if err := Register(emailFactory{}); err != nil {
		panic(err)
	}
}

func (emailFactory) Name() string { return "email" }

func (emailFactory) Source(_ context.Context, _ config.SourceSpec, _ *logger.Logger) (Source, error) {
	return nil, flotillaerrors.NewProtocolError("email", fmt.Errorf("cannot act as a source"))
}

func (emailFactory) Commander(_ context.Context, _ string, _ config.ProtocolSpec, _ *logger.Logger) (Commander, error) {
	return nil, flotillaerrors.NewProtocolError("email", fmt.Errorf("cannot run commands"))
}

func (emailFactory) Destination(ctx context.Context, spec config.DestinationSpec, log *logger.Logger) (Destination, error) {
	smtp := spec.Protocol.SMTP
	if smtp == nil {
		return nil, flotillaerrors.NewProtocolError("email", fmt.Errorf("smtp configuration is required"))
	}
	if smtp.Sender == "" {
		return nil, flotillaerrors.NewProtocolError("email", fmt.Errorf("smtp.sender is required"))
	}
	if len(spec.Recipients) == 0 {
		return nil, flotillaerrors.NewProtocolError("email", fmt.Errorf("recipients are required"))
	}

	subject := spec.Subject
	if subject == "" {
		subject = defaultEmailSubject
	}

	return &emailDestination{
		ctx:        ctx,
		smtp:       *smtp,
		recipients: spec.Recipients,
		subject:    subject,
		log:        log,
	}, nil
}

type emailAttachment struct {
	name string
	data []byte
}

// emailDestination buffers stored files and mails them as attachments when
// closed. The construction context is kept for the send because Close carries
// no context of its own.
type emailDestination struct {
	ctx        context.Context
	smtp       config.SMTPSpec
	recipients []string
	subject    string
	log        *logger.Logger

	attachments []emailAttachment
}

func (d *emailDestination) Store(_ context.Context, name string, contents io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, contents); err != nil {
		return flotillaerrors.NewProtocolError("email", fmt.Errorf("buffer %s: %w", name, err))
	}
	d.attachments = append(d.attachments, emailAttachment{name: name, data: buf.Bytes()})
	return nil
}

func (d *emailDestination) Close() error {
	if len(d.attachments) == 0 {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(d.smtp.Sender); err != nil {
		return flotillaerrors.NewProtocolError("email", fmt.Errorf("sender: %w", err))
	}
	if err := msg.To(d.recipients...); err != nil {
		return flotillaerrors.NewProtocolError("email", fmt.Errorf("recipients: %w", err))
	}
	msg.Subject(d.subject)
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("%d file(s) attached.", len(d.attachments)))

	for _, att := range d.attachments {
		if err := msg.AttachReader(att.name, bytes.NewReader(att.data)); err != nil {
			return flotillaerrors.NewProtocolError("email", fmt.Errorf("attach %s: %w", att.name, err))
		}
	}

	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if d.smtp.Port > 0 {
		opts = append(opts, mail.WithPort(d.smtp.Port))
	}
	if d.smtp.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.smtp.Username),
			mail.WithPassword(d.smtp.Password),
		)
	}

	client, err := mail.NewClient(d.smtp.Host, opts...)
	if err != nil {
		return flotillaerrors.NewProtocolError("email", fmt.Errorf("smtp client: %w", err))
	}

	if err := client.DialAndSendWithContext(d.ctx, msg); err != nil {
		return flotillaerrors.NewProtocolError("email", fmt.Errorf("send via %s: %w", d.smtp.Host, err))
	}

	d.log.WithFields(map[string]any{
		"recipients": len(d.recipients),
		"files":      len(d.attachments),
	}).Info("files delivered by mail")

	return nil
}
