package messaging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

func TestGenerateMessageID_SuccessiveCallsDiffer(t *testing.T) {
	a := GenerateMessageID()
	b := GenerateMessageID()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if !strings.HasPrefix(a, "msg-") {
		t.Fatalf("id = %q, want msg- prefix", a)
	}
}

func TestFormatMessageFile_EscapesEmbeddedQuotes(t *testing.T) {
	msg := &store.MessageData{
		ID: "msg-1", From: "agent-a", To: "agent-b", Timestamp: time.Unix(0, 0),
		Priority: "normal", Channel: "internal", Subject: `say "hi"`,
	}
	out := FormatMessageFile(msg, "body text")
	if !strings.Contains(out, `subject: "say \"hi\""`) {
		t.Fatalf("expected escaped subject line, got:\n%s", out)
	}
	if !strings.Contains(out, "read: false\n") {
		t.Fatalf("expected bare boolean field, got:\n%s", out)
	}
	if !strings.HasSuffix(out, "---\n\n\nbody text") {
		t.Fatalf("expected two blank lines then body, got:\n%s", out)
	}
}

func TestWriteMessageToInbox_UnreadVsReadDirectory(t *testing.T) {
	dir := t.TempDir()
	paths := pathresolver.New(dir)

	unread := &store.MessageData{ID: "msg-1", From: "a", To: "b", Timestamp: time.Now(), Read: false}
	path, err := WriteMessageToInbox(paths, "agent-b", unread, "hi", WriteOptions{})
	if err != nil {
		t.Fatalf("WriteMessageToInbox: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "unread" {
		t.Fatalf("expected unread dir, got %s", path)
	}

	read := &store.MessageData{ID: "msg-2", From: "a", To: "b", Timestamp: time.Now(), Read: true}
	path, err = WriteMessageToInbox(paths, "agent-b", read, "hi", WriteOptions{})
	if err != nil {
		t.Fatalf("WriteMessageToInbox: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "read" {
		t.Fatalf("expected read dir, got %s", path)
	}
}

func TestWriteMessageToInbox_RequireAgentDirFailsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	paths := pathresolver.New(dir)

	msg := &store.MessageData{ID: "msg-1", From: "a", To: "ghost", Timestamp: time.Now()}
	_, err := WriteMessageToInbox(paths, "ghost", msg, "hi", WriteOptions{RequireAgentDir: true})
	if !store.IsKind(err, store.KindNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestWriteMessagesInBatch_EmptyReturnsEmpty(t *testing.T) {
	paths := pathresolver.New(t.TempDir())
	results := WriteMessagesInBatch(paths, nil)
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
}

func TestWriteMessagesInBatch_PartialFailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	paths := pathresolver.New(dir)
	if err := os.MkdirAll(paths.AgentDir("agent-ok"), 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	items := []BatchItem{
		{AgentID: "agent-ok", Message: &store.MessageData{ID: "msg-1", From: "a", To: "agent-ok", Timestamp: time.Now()}, Body: "ok"},
		{AgentID: "agent-missing", Message: &store.MessageData{ID: "msg-2", From: "a", To: "agent-missing", Timestamp: time.Now()}, Body: "no", Opts: WriteOptions{RequireAgentDir: true}},
	}
	results := WriteMessagesInBatch(paths, items)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("expected agent-ok to succeed, got %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatalf("expected agent-missing to fail")
	}
}
