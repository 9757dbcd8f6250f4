package persistence

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// Session documents are stored as JSON: the same shape they take on their
// way to the remote workflow API, so stored payloads stay inspectable with
// ordinary tooling.

// EncodeSession serializes a session document.
func EncodeSession(sess *api.Session) ([]byte, error) {
	data, err := sonic.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", sess.ID, err)
	}
	return data, nil
}

// DecodeSession deserializes a session document.
func DecodeSession(data []byte) (*api.Session, error) {
	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}
	var sess api.Session
	if err := sonic.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session document: %w", err)
	}
	return &sess, nil
}

// CloneSession deep-copies a session through the codec, so callers of the
// in-memory store can never alias the stored document.
func CloneSession(sess *api.Session) (*api.Session, error) {
	data, err := EncodeSession(sess)
	if err != nil {
		return nil, err
	}
	return DecodeSession(data)
}
