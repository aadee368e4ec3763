package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// Attachment is a single file sent along with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// LoadAttachment reads path into an Attachment.
func LoadAttachment(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return &Attachment{Filename: filepath.Base(path), Content: data}, nil
}

// ContentType sniffs the attachment's media type.
func (a *Attachment) ContentType() string {
	return mimetype.Detect(a.Content).String()
}

// ListConversations returns the caller's chats in server order. A peer that
// appears more than once keeps its first position.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	body, err := c.call(ctx, http.MethodGet, "/messages", nil)
	if err != nil {
		return nil, err
	}
	ws, err := decodeList[wireConversation](body)
	if err != nil {
		return nil, err
	}
	convs := lo.Map(ws, func(w wireConversation, _ int) Conversation { return w.conversation() })
	return lo.UniqBy(convs, func(c Conversation) string { return c.PeerID }), nil
}

// History returns the ordered messages exchanged with peerID.
func (c *Client) History(ctx context.Context, peerID string) ([]Message, error) {
	body, err := c.call(ctx, http.MethodGet, "/messages/"+url.PathEscape(peerID), nil)
	if err != nil {
		return nil, err
	}
	ws, err := decodeList[wireMessage](body)
	if err != nil {
		return nil, err
	}
	return lo.Map(ws, func(w wireMessage, _ int) Message { return w.message() }), nil
}

// SendMessage posts a message to receiverID. With an attachment the request
// is multipart, otherwise JSON.
func (c *Client) SendMessage(ctx context.Context, receiverID, content string, att *Attachment) (*Message, error) {
	var (
		body []byte
		err  error
	)
	if att == nil {
		body, err = c.call(ctx, http.MethodPost, "/messages", map[string]string{
			"receiverId": receiverID,
			"content":    content,
		})
	} else {
		body, err = c.sendMultipart(ctx, receiverID, content, att)
	}
	if err != nil {
		return nil, err
	}
	return decodeMessageBody(body)
}

func (c *Client) sendMultipart(ctx context.Context, receiverID, content string, att *Attachment) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("receiverId", receiverID); err != nil {
		return nil, err
	}
	if err := mw.WriteField("content", content); err != nil {
		return nil, err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename=%q`, att.Filename))
	h.Set("Content-Type", att.ContentType())
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(att.Content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/messages", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// EditMessage replaces the content of messageID and returns the server's copy.
func (c *Client) EditMessage(ctx context.Context, messageID, content string) (*Message, error) {
	body, err := c.call(ctx, http.MethodPatch, "/messages/"+url.PathEscape(messageID), map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	return decodeMessageBody(body)
}

// DeleteMessage removes messageID from the remote store.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil)
	return err
}

// decodeMessageBody accepts both a bare message and a {"data": message} envelope.
func decodeMessageBody(body []byte) (*Message, error) {
	if env, err := decode[wireEnvelope[wireMessage]](body); err == nil && env.Data != nil {
		if err := check(*env.Data); err != nil {
			return nil, err
		}
		m := env.Data.message()
		return &m, nil
	}
	w, err := decode[wireMessage](body)
	if err != nil {
		return nil, err
	}
	m := w.message()
	return &m, nil
}
