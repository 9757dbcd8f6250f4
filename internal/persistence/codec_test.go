package persistence

import (
	"errors"
	"testing"
	"time"
)

func TestCodecRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	sess := testSession("s-1", now, time.Hour)
	sess.Credentials = map[string]string{"slack": "cred-9"}

	data, err := EncodeSession(sess)
	if err != nil {
		t.Fatalf("EncodeSession failed: %v", err)
	}

	got, err := DecodeSession(data)
	if err != nil {
		t.Fatalf("DecodeSession failed: %v", err)
	}
	if got.ID != sess.ID || got.Status != sess.Status {
		t.Fatalf("identity fields did not round-trip: %+v", got)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("ExpiresAt did not round-trip: %v vs %v", got.ExpiresAt, sess.ExpiresAt)
	}
	if got.Credentials["slack"] != "cred-9" {
		t.Fatalf("credentials did not round-trip: %+v", got.Credentials)
	}
	if len(got.Draft.Nodes) != 1 || got.Draft.Nodes[0].Position != [2]int{240, 300} {
		t.Fatalf("draft did not round-trip: %+v", got.Draft)
	}
}

func TestDecodeSessionEmpty(t *testing.T) {
	if _, err := DecodeSession(nil); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for nil input, got %v", err)
	}
	if _, err := DecodeSession([]byte{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for empty input, got %v", err)
	}
}

func TestCloneSessionIsDeep(t *testing.T) {
	sess := testSession("s-1", time.Now().UTC(), time.Hour)

	clone, err := CloneSession(sess)
	if err != nil {
		t.Fatalf("CloneSession failed: %v", err)
	}

	clone.Draft.Nodes[0].Name = "Changed"
	clone.OperationsLog = append(clone.OperationsLog, clone.OperationsLog[0])

	if sess.Draft.Nodes[0].Name != "Webhook" {
		t.Fatalf("clone shares node storage with the original")
	}
	if len(sess.OperationsLog) != 1 {
		t.Fatalf("clone shares log storage with the original")
	}
}
