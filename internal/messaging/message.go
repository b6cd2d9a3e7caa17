// Package messaging implements the agent inbox message format and writer
// (§4.9): id generation, the YAML-like frontmatter file format, and atomic,
// best-effort batch delivery to an agent's inbox.
package messaging

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/fsio"
	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

const msgIDCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateMessageID returns "msg-<unix-ms>-<6 lowercase alphanumerics>"; two
// successive calls within the same millisecond share the timestamp and
// differ (with overwhelming probability) in the random suffix.
func GenerateMessageID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = 0
		}
	}
	suffix := make([]byte, 6)
	for i, b := range buf {
		suffix[i] = msgIDCharset[int(b)%len(msgIDCharset)]
	}
	return "msg-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + string(suffix)
}

// quoteYAML double-quotes s, escaping embedded quotes.
func quoteYAML(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// FormatMessageFile renders msg as frontmatter-plus-body: a "---" delimited
// block of scalar fields, two blank lines, then the body (§4.9).
func FormatMessageFile(msg *store.MessageData, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", quoteYAML(msg.ID))
	fmt.Fprintf(&b, "from: %s\n", quoteYAML(msg.From))
	fmt.Fprintf(&b, "to: %s\n", quoteYAML(msg.To))
	fmt.Fprintf(&b, "timestamp: %s\n", quoteYAML(msg.Timestamp.UTC().Format(time.RFC3339)))
	fmt.Fprintf(&b, "priority: %s\n", quoteYAML(msg.Priority))
	fmt.Fprintf(&b, "channel: %s\n", quoteYAML(msg.Channel))
	fmt.Fprintf(&b, "read: %t\n", msg.Read)
	fmt.Fprintf(&b, "actionRequired: %t\n", msg.ActionRequired)
	if msg.Subject != "" {
		fmt.Fprintf(&b, "subject: %s\n", quoteYAML(msg.Subject))
	}
	if msg.ThreadID != "" {
		fmt.Fprintf(&b, "threadId: %s\n", quoteYAML(msg.ThreadID))
	}
	if msg.InReplyTo != "" {
		fmt.Fprintf(&b, "inReplyTo: %s\n", quoteYAML(msg.InReplyTo))
	}
	b.WriteString("---\n\n\n")
	b.WriteString(body)
	return b.String()
}

// WriteOptions controls WriteMessageToInbox's filesystem preconditions.
type WriteOptions struct {
	RequireAgentDir bool
}

// WriteMessageToInbox writes msg (rendered via FormatMessageFile) to the
// agent's inbox/unread or inbox/read directory according to msg.Read, mode
// 0644, atomically (§4.9).
func WriteMessageToInbox(paths *pathresolver.Resolver, agentID string, msg *store.MessageData, body string, opts WriteOptions) (string, error) {
	if opts.RequireAgentDir {
		if _, err := os.Stat(paths.AgentDir(agentID)); err != nil {
			return "", store.NewError(store.KindNotFound, agentID, "agent directory does not exist: %s", agentID)
		}
	}

	state := "unread"
	if msg.Read {
		state = "read"
	}
	path := paths.InboxMessagePath(agentID, state, msg.ID)
	content := FormatMessageFile(msg, body)
	if err := fsio.AtomicWrite(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// BatchItem pairs a destination agent with the message to deliver to it.
type BatchItem struct {
	AgentID string
	Message *store.MessageData
	Body    string
	Opts    WriteOptions
}

// BatchResult is one item's outcome from WriteMessagesInBatch.
type BatchResult struct {
	AgentID string
	Path    string
	Err     error
}

// WriteMessagesInBatch writes every item in parallel. Partial failures are
// collected and logged as warnings rather than aborting the batch; the
// returned slice preserves input order. An empty batch returns an empty
// slice (§4.9).
func WriteMessagesInBatch(paths *pathresolver.Resolver, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	if len(items) == 0 {
		return results
	}

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BatchItem) {
			defer wg.Done()
			path, err := WriteMessageToInbox(paths, item.AgentID, item.Message, item.Body, item.Opts)
			results[i] = BatchResult{AgentID: item.AgentID, Path: path, Err: err}
			if err != nil {
				slog.Warn("messaging: inbox write failed", "agentId", item.AgentID, "messageId", item.Message.ID, "error", err)
			}
		}(i, item)
	}
	wg.Wait()
	return results
}
