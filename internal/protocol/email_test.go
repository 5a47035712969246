package protocol

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flotilla-run/flotilla/internal/config"
)

func emailDestSpec() config.DestinationSpec {
	return config.DestinationSpec{
		Protocol: config.ProtocolSpec{
			Name: "email",
			SMTP: &config.SMTPSpec{
				Host:   "smtp.example.com",
				Port:   587,
				Sender: "batch@example.com",
			},
		},
		Recipients: []string{"ops@example.com"},
		Subject:    "nightly report",
	}
}

func TestEmailFactory_RequiresSMTPSenderAndRecipients(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	spec := emailDestSpec()
	spec.Protocol.SMTP = nil
	_, err := emailFactory{}.Destination(context.Background(), spec, log)
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp configuration is required")

	spec = emailDestSpec()
	spec.Protocol.SMTP.Sender = ""
	_, err = emailFactory{}.Destination(context.Background(), spec, log)
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp.sender is required")

	spec = emailDestSpec()
	spec.Recipients = nil
	_, err = emailFactory{}.Destination(context.Background(), spec, log)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recipients are required")
}

func TestEmailDestination_StoreBuffersAttachments(t *testing.T) {
	t.Parallel()

	dest, err := emailFactory{}.Destination(context.Background(), emailDestSpec(), newTestLogger(t))
	require.NoError(t, err)

	require.NoError(t, dest.Store(context.Background(), "report-a.csv", strings.NewReader("a,b,c")))
	require.NoError(t, dest.Store(context.Background(), "report-b.csv", strings.NewReader("d,e,f")))

	ed, ok := dest.(*emailDestination)
	require.True(t, ok)
	require.Len(t, ed.attachments, 2)
	require.Equal(t, "report-a.csv", ed.attachments[0].name)
	require.Equal(t, "a,b,c", string(ed.attachments[0].data))
}

func TestEmailDestination_CloseWithoutFilesSendsNothing(t *testing.T) {
	t.Parallel()

	// The host does not resolve; Close only dials when files were stored.
	spec := emailDestSpec()
	spec.Protocol.SMTP.Host = "smtp.invalid"

	dest, err := emailFactory{}.Destination(context.Background(), spec, newTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, dest.Close())
}

func TestEmailDestination_DefaultsSubject(t *testing.T) {
	t.Parallel()

	spec := emailDestSpec()
	spec.Subject = ""

	dest, err := emailFactory{}.Destination(context.Background(), spec, newTestLogger(t))
	require.NoError(t, err)

	ed, ok := dest.(*emailDestination)
	require.True(t, ok)
	require.Equal(t, defaultEmailSubject, ed.subject)
}
