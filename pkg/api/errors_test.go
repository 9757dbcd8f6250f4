package api

import (
	"errors"
	"strings"
	"testing"
)

func TestInvalidOutputIndexErrorMessage(t *testing.T) {
	err := &InvalidOutputIndexError{
		Node:            "Gate",
		NodeID:          "n-2",
		NodeType:        "if",
		Category:        CategoryBranching,
		Requested:       2,
		ValidMax:        1,
		Explanation:     `Binary gates always expose exactly two outputs indexed "true" (0) and "false" (1).`,
		SuggestedOutput: 1,
		SuggestedCall:   `connect(from_node="Gate", to_node="No", from_output=1)`,
		ExistingConnections: []ConnectionDiagnostic{
			{From: "Gate", To: "Yes", FromOutput: 0, Valid: true},
		},
		Reference: NodeBehaviorReference,
	}

	msg := err.Error()
	for _, want := range []string{
		"invalid output index 2",
		`node "Gate"`,
		"valid range is 0 to 1",
		"from_output=1",
		"Gate -> Yes output 0: valid",
		NodeBehaviorReference,
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected diagnostic to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestCommitFailedErrorWrapsCause(t *testing.T) {
	cause := &RemoteError{Kind: KindTransient, Message: "connection refused"}
	err := &CommitFailedError{
		SessionID:     "s-1",
		SessionStatus: StatusActive,
		TTLExtended:   true,
		RetryCount:    4,
		Advice:        "The draft is intact; fix connectivity and retry commit.",
		Err:           cause,
	}

	if !errors.Is(err, error(cause)) {
		t.Fatalf("expected errors.Is to find the remote cause")
	}

	var re *RemoteError
	if !errors.As(err, &re) || re.Kind != KindTransient {
		t.Fatalf("expected errors.As to extract RemoteError, got %v", re)
	}

	msg := err.Error()
	for _, want := range []string{"session_status=active", "ttl_extended=true", "retry_count=4", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestNodeCategoryTextRoundTrip(t *testing.T) {
	for _, c := range []NodeCategory{CategoryTrigger, CategoryAction, CategoryTransform, CategoryBranching} {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText failed: %v", err)
		}

		var back NodeCategory
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) failed: %v", text, err)
		}
		if back != c {
			t.Fatalf("category %v round-tripped to %v", c, back)
		}
	}

	var c NodeCategory
	if err := c.UnmarshalText([]byte("router")); err == nil {
		t.Fatalf("expected error for unknown category text")
	}
}

func TestRemoteErrorKindOf(t *testing.T) {
	auth := &RemoteError{Kind: KindAuth, StatusCode: 401, Message: "unauthorized"}
	if got := RemoteErrorKindOf(auth); got != KindAuth {
		t.Fatalf("expected KindAuth, got %v", got)
	}

	wrapped := &CommitFailedError{SessionID: "s-1", Err: auth}
	if got := RemoteErrorKindOf(wrapped); got != KindAuth {
		t.Fatalf("expected KindAuth through wrapping, got %v", got)
	}

	if got := RemoteErrorKindOf(errors.New("dial tcp: timeout")); got != KindTransient {
		t.Fatalf("expected unstructured errors to default to KindTransient, got %v", got)
	}
}
