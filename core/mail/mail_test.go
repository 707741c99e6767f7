package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	data := bytes.Repeat([]byte("epub-bytes-"), 40)
	raw, err := Compose(Message{
		From:       "me@example.test",
		To:         "reader@kindle.test",
		Subject:    "Book from OPDS",
		Attachment: Attachment{Filename: "Dune.epub", Data: data},
	})
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "me@example.test", msg.Header.Get("From"))
	assert.Equal(t, "reader@kindle.test", msg.Header.Get("To"))
	assert.Equal(t, "Book from OPDS", msg.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "Dune.epub", part.FileName())
	assert.Equal(t, "base64", part.Header.Get("Content-Transfer-Encoding"))

	encoded, err := io.ReadAll(part)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
		assert.LessOrEqual(t, len(line), lineLen)
	}

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendRequiresCredentials(t *testing.T) {
	s := NewSender(Config{Server: "smtp.example.test", Port: 587, User: "me@example.test"})
	assert.False(t, s.Configured())
	err := s.Send(context.Background(), Message{})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
