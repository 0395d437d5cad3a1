// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agentchat/internal/agent"
	"github.com/jeranaias/agentchat/internal/attachment"
	"github.com/jeranaias/agentchat/internal/config"
	"github.com/jeranaias/agentchat/internal/model"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// stubAgent is an httptest endpoint with a swappable handler that records
// every request body.
type stubAgent struct {
	srv     *httptest.Server
	mu      sync.Mutex
	handler http.HandlerFunc
	bodies  []map[string]any
	hits    atomic.Int32
}

func newStubAgent(t *testing.T, handler http.HandlerFunc) *stubAgent {
	t.Helper()
	s := &stubAgent{handler: handler}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.Method == http.MethodPost {
			var body map[string]any
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &body)
			s.mu.Lock()
			s.bodies = append(s.bodies, body)
			s.mu.Unlock()
		}
		s.mu.Lock()
		h := s.handler
		s.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *stubAgent) lastBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return nil
	}
	return s.bodies[len(s.bodies)-1]
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

// hang blocks until the client goes away.
func hang(w http.ResponseWriter, r *http.Request) {
	<-r.Context().Done()
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) all() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.notices...)
}

func (l *noticeLog) last() (Notice, bool) {
	all := l.all()
	if len(all) == 0 {
		return Notice{}, false
	}
	return all[len(all)-1], true
}

func newTestController(t *testing.T, stub *stubAgent, timeoutSeconds int, upload bool) (*Controller, *noticeLog, *config.Store) {
	t.Helper()
	store := config.NewStore(config.NewMemoryBackend())
	_, err := store.Save(config.Candidate{
		EndpointURL:       stub.srv.URL + "/webhook/chat",
		FileUploadEnabled: upload,
		TimeoutSeconds:    strconv.Itoa(timeoutSeconds),
	})
	require.NoError(t, err)

	notices := &noticeLog{}
	c := New(store, WithNoticeHandler(notices.add))
	return c, notices, store
}

func agentTexts(turns []model.Turn) []string {
	var out []string
	for _, t := range turns {
		if t.Sender == model.SenderAgent {
			out = append(out, t.Text)
		}
	}
	return out
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestSend_EmptyInputIsNoOp(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"never"}`))
	c, notices, _ := newTestController(t, stub, 5, false)
	before := c.Snapshot()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Send(context.Background(), text, nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	after := c.Snapshot()
	assert.Empty(t, after.Turns)
	assert.Equal(t, before.Actions, after.Actions)
	assert.False(t, after.Pending)
	assert.Equal(t, int32(0), stub.hits.Load())
	assert.Empty(t, notices.all())
}

func TestBegin_PendingGuardRejectsSecondSend(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	c, _, _ := newTestController(t, stub, 5, false)

	ex, err := c.Begin("first", nil)
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.True(t, snap.Pending)
	require.Len(t, snap.Turns, 1)

	_, err = c.Begin("second", nil)
	assert.ErrorIs(t, err, ErrRequestPending)
	assert.Len(t, c.Snapshot().Turns, 1, "rejected send must not append")

	out := ex.Run(context.Background())
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.False(t, c.Pending())

	_, err = c.Send(context.Background(), "third", nil)
	assert.NoError(t, err)
}

func TestBegin_OptimisticTurnAndEmptyActions(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	c, _, _ := newTestController(t, stub, 5, false)
	require.Equal(t, []string{agent.DefaultAction}, c.Snapshot().Actions)

	ex, err := c.Begin("  hello  ", nil)
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 1)
	assert.Equal(t, model.SenderUser, snap.Turns[0].Sender)
	assert.Equal(t, "hello", snap.Turns[0].Text)
	assert.Equal(t, model.TurnPending, snap.Turns[0].State)
	assert.Equal(t, ActionsEmpty, snap.ActionPhase)
	assert.Nil(t, snap.Actions)
	assert.Equal(t, int32(0), stub.hits.Load(), "Begin does no I/O")

	ex.Run(context.Background())
	assert.Equal(t, model.TurnCommitted, c.Snapshot().Turns[0].State)
}

func TestBegin_AttachmentRequiresUploadEnabled(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	c, _, _ := newTestController(t, stub, 5, false)

	att, err := attachment.FromBytes("notes.txt", attachment.TypeText, []byte("x"))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "see file", att)
	assert.ErrorIs(t, err, ErrUploadDisabled)
	assert.Empty(t, c.Snapshot().Turns)
	assert.False(t, c.Pending())
}

// =============================================================================
// SUCCESS PATHS
// =============================================================================

func TestSend_SuccessBareShape(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"Hi","suggestedActions":["A","B"]}`))
	c, notices, _ := newTestController(t, stub, 5, false)

	out, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.NoError(t, out.Err)
	assert.Equal(t, "Hi", out.Reply.Message)

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 2)
	assert.Equal(t, "hello", snap.Turns[0].Text)
	assert.Equal(t, model.SenderAgent, snap.Turns[1].Sender)
	assert.Equal(t, "Hi", snap.Turns[1].Text)
	assert.False(t, snap.Turns[1].Failed)
	assert.Equal(t, []string{"A", "B"}, snap.Actions)
	assert.Equal(t, ActionsPopulated, snap.ActionPhase)
	assert.False(t, snap.Pending)
	assert.Empty(t, notices.all())

	body := stub.lastBody()
	assert.Equal(t, snap.SessionID, body["sessionId"])
	assert.Equal(t, "sendMessage", body["action"])
	assert.Equal(t, "hello", body["chatInput"])
	assert.NotContains(t, body, "file")
}

func TestSend_SuccessWrappedAndListShapes(t *testing.T) {
	stub := newStubAgent(t, reply(`{"output":{"message":"wrapped"}}`))
	c, _, _ := newTestController(t, stub, 5, false)

	_, err := c.Send(context.Background(), "one", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{agent.DefaultAction}, c.Snapshot().Actions)

	stub.mu.Lock()
	stub.handler = reply(`[{"output":{"message":"listed","suggestedActions":["X"]}}]`)
	stub.mu.Unlock()

	_, err = c.Send(context.Background(), "two", nil)
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, []string{"wrapped", "listed"}, agentTexts(snap.Turns))
	assert.Equal(t, []string{"X"}, snap.Actions, "actions replaced, never merged")
}

func TestSend_NoMessageUsesPlaceholder(t *testing.T) {
	stub := newStubAgent(t, reply(`{}`))
	c, _, _ := newTestController(t, stub, 5, false)

	out, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, []string{agent.DefaultMessage}, agentTexts(c.Snapshot().Turns))
}

func TestSend_UsesSameSessionIDAcrossTurns(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	c, _, _ := newTestController(t, stub, 5, false)

	c.Send(context.Background(), "one", nil)
	first := stub.lastBody()["sessionId"]
	c.Send(context.Background(), "two", nil)
	assert.Equal(t, first, stub.lastBody()["sessionId"])
}

// =============================================================================
// FAILURE PATHS
// =============================================================================

func TestSend_TimeoutAbortsRequest(t *testing.T) {
	stub := newStubAgent(t, hang)
	c, notices, _ := newTestController(t, stub, 1, false)

	start := time.Now()
	out, err := c.Send(context.Background(), "hello", nil)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, StatusTimedOut, out.Status)
	var te *TimeoutError
	require.True(t, errors.As(out.Err, &te))
	assert.Equal(t, time.Second, te.Timeout)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 2)
	assert.Equal(t, TimeoutReply, snap.Turns[1].Text)
	assert.True(t, snap.Turns[1].Failed)
	assert.Equal(t, []string{agent.DefaultAction}, snap.Actions)
	assert.False(t, snap.Pending)

	n, ok := notices.last()
	require.True(t, ok)
	assert.Equal(t, NoticeTimeout, n.Kind)
	assert.Contains(t, n.Message, "1s")
}

func TestSend_ServerErrorRecovers(t *testing.T) {
	stub := newStubAgent(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow crashed", http.StatusInternalServerError)
	})
	c, notices, _ := newTestController(t, stub, 5, false)

	out, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)

	var ne *NetworkError
	require.True(t, errors.As(out.Err, &ne))
	assert.ErrorIs(t, out.Err, agent.ErrServerError)

	snap := c.Snapshot()
	assert.Equal(t, []string{ErrorReply}, agentTexts(snap.Turns))
	assert.Equal(t, []string{agent.DefaultAction}, snap.Actions)
	assert.False(t, snap.Pending)

	n, ok := notices.last()
	require.True(t, ok)
	assert.Equal(t, NoticeError, n.Kind)
	assert.Contains(t, n.Message, "Error sending message")
}

func TestSend_InvalidJSONRecovers(t *testing.T) {
	stub := newStubAgent(t, reply(`<html>gateway</html>`))
	c, _, _ := newTestController(t, stub, 5, false)

	out, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, agent.ErrInvalidJSON)
	assert.Equal(t, []string{ErrorReply}, agentTexts(c.Snapshot().Turns))
	assert.False(t, c.Pending())
}

func TestSend_UnreachableEndpointRecovers(t *testing.T) {
	stub := newStubAgent(t, reply(`{}`))
	c, _, store := newTestController(t, stub, 5, false)
	require.NoError(t, store.Override(config.Settings{EndpointURL: "http://127.0.0.1:1/none", TimeoutSeconds: 5}))

	out, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, c.Pending())
	assert.Equal(t, []string{ErrorReply}, agentTexts(c.Snapshot().Turns))
}

func TestCancel_AbortsInFlightRequest(t *testing.T) {
	stub := newStubAgent(t, hang)
	c, notices, _ := newTestController(t, stub, 30, false)
	assert.False(t, c.Cancel(), "nothing to cancel yet")

	ex, err := c.Begin("hello", nil)
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() { done <- ex.Run(context.Background()) }()

	require.Eventually(t, func() bool { return stub.hits.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, c.Cancel())

	select {
	case out := <-done:
		assert.Equal(t, StatusCancelled, out.Status)
		assert.ErrorIs(t, out.Err, ErrCancelled)
	case <-time.After(3 * time.Second):
		t.Fatal("cancel did not abort the request")
	}

	snap := c.Snapshot()
	require.Len(t, snap.Turns, 1, "cancel adds no agent turn")
	assert.Equal(t, model.TurnCommitted, snap.Turns[0].State)
	assert.Equal(t, []string{agent.DefaultAction}, snap.Actions)
	assert.False(t, snap.Pending)

	n, _ := notices.last()
	assert.Equal(t, NoticeInfo, n.Kind)
}

func TestCancel_BeforeRunStillAborts(t *testing.T) {
	stub := newStubAgent(t, hang)
	c, _, _ := newTestController(t, stub, 30, false)

	ex, err := c.Begin("hello", nil)
	require.NoError(t, err)
	require.True(t, c.Cancel())

	out := ex.Run(context.Background())
	assert.Equal(t, StatusCancelled, out.Status)
	assert.False(t, c.Pending())
}

func TestSend_CallerContextEndsRequest(t *testing.T) {
	stub := newStubAgent(t, hang)
	c, _, _ := newTestController(t, stub, 30, false)

	ctx, cancel := context.WithCancel(context.Background())
	ex, err := c.Begin("hello", nil)
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() { done <- ex.Run(ctx) }()

	require.Eventually(t, func() bool { return stub.hits.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case out := <-done:
		assert.Equal(t, StatusCancelled, out.Status)
		assert.ErrorIs(t, out.Err, ErrCancelled)
		assert.False(t, ex.cancelMgr.wasCancelled(), "no user cancel happened")
	case <-time.After(3 * time.Second):
		t.Fatal("ending the caller context did not abort the request")
	}
	assert.False(t, c.Pending())
	require.Len(t, c.Snapshot().Turns, 1)
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func TestSend_TextAttachmentInlinesContent(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"got it"}`))
	c, _, _ := newTestController(t, stub, 5, true)

	att, err := attachment.FromBytes("notes.txt", attachment.TypeText, []byte("line 1\nline 2"))
	require.NoError(t, err)

	out, err := c.Send(context.Background(), "summarize", att)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, out.Status)

	file, ok := stub.lastBody()["file"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", file["name"])
	assert.Equal(t, "text/plain", file["type"])
	assert.Equal(t, "line 1\nline 2", file["content"])

	user := c.Snapshot().Turns[0]
	assert.Equal(t, "summarize\n[Attached: notes.txt]", user.Text)
	assert.Equal(t, "notes.txt", user.AttachmentName)
}

func TestSend_AttachmentOnlyMessage(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	c, _, _ := newTestController(t, stub, 5, true)

	att, err := attachment.FromBytes("report.pdf", attachment.TypePDF, []byte("%PDF-1.4"))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), "", att)
	require.NoError(t, err)

	body := stub.lastBody()
	assert.Equal(t, "", body["chatInput"])
	file := body["file"].(map[string]any)
	assert.Equal(t, "application/pdf", file["type"])
	assert.NotContains(t, file, "content", "non-text content is never sent")
	assert.Equal(t, "[Attached: report.pdf]", c.Snapshot().Turns[0].Text)
}

func TestSend_AttachmentReadFailureAbortsBeforeNetwork(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"never"}`))
	c, notices, _ := newTestController(t, stub, 5, true)

	att, err := attachment.New("gone.txt", attachment.TypeText, 4, func() (io.ReadCloser, error) {
		return nil, os.ErrPermission
	})
	require.NoError(t, err)

	out, err := c.Send(context.Background(), "read this", att)
	require.NoError(t, err)
	assert.Equal(t, StatusReadFailed, out.Status)

	var pe *ParseError
	require.True(t, errors.As(out.Err, &pe))
	assert.Equal(t, "gone.txt", pe.FileName)
	assert.ErrorIs(t, out.Err, os.ErrPermission)

	snap := c.Snapshot()
	assert.Empty(t, snap.Turns, "optimistic user turn rolled back")
	assert.Equal(t, []string{agent.DefaultAction}, snap.Actions)
	assert.False(t, snap.Pending)
	assert.Equal(t, int32(0), stub.hits.Load())

	n, _ := notices.last()
	assert.Equal(t, NoticeError, n.Kind)
}

func TestAttach_SelectionChecks(t *testing.T) {
	stub := newStubAgent(t, reply(`{}`))
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	png := filepath.Join(dir, "image.png")
	pdf := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0600))
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n"), 0600))
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7\n"), 0600))

	t.Run("disabled", func(t *testing.T) {
		c, notices, _ := newTestController(t, stub, 5, false)
		_, err := c.Attach(txt)
		assert.ErrorIs(t, err, ErrUploadDisabled)
		n, _ := notices.last()
		assert.Equal(t, NoticeWarning, n.Kind)
	})

	t.Run("unsupported", func(t *testing.T) {
		c, notices, _ := newTestController(t, stub, 5, true)
		_, err := c.Attach(png)
		assert.ErrorIs(t, err, attachment.ErrUnsupportedType)
		n, _ := notices.last()
		assert.Equal(t, NoticeError, n.Kind)
		assert.Empty(t, c.Snapshot().Turns)
	})

	t.Run("text", func(t *testing.T) {
		c, notices, _ := newTestController(t, stub, 5, true)
		att, err := c.Attach(txt)
		require.NoError(t, err)
		assert.True(t, att.IsText())
		assert.Empty(t, notices.all())
	})

	t.Run("pdf warns", func(t *testing.T) {
		c, notices, _ := newTestController(t, stub, 5, true)
		att, err := c.Attach(pdf)
		require.NoError(t, err)
		assert.False(t, att.IsText())
		n, ok := notices.last()
		require.True(t, ok)
		assert.Equal(t, NoticeWarning, n.Kind)
	})
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

func TestNewChat_ResetsSession(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"Hi","suggestedActions":["A"]}`))
	c, _, _ := newTestController(t, stub, 5, false)

	_, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	before := c.Snapshot()
	require.Len(t, before.Turns, 2)

	id := c.NewChat()

	after := c.Snapshot()
	assert.Empty(t, after.Turns)
	assert.Equal(t, []string{agent.DefaultAction}, after.Actions)
	assert.NotEqual(t, before.SessionID, after.SessionID)
	assert.Equal(t, id, after.SessionID)

	_, err = c.Send(context.Background(), "again", nil)
	require.NoError(t, err)
	assert.Equal(t, after.SessionID, stub.lastBody()["sessionId"])
}

func TestNewChat_DropsInFlightReply(t *testing.T) {
	release := make(chan struct{})
	stub := newStubAgent(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
			w.Write([]byte(`{"message":"late"}`))
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c, _, _ := newTestController(t, stub, 30, false)

	ex, err := c.Begin("hello", nil)
	require.NoError(t, err)
	done := make(chan Outcome, 1)
	go func() { done <- ex.Run(context.Background()) }()
	require.Eventually(t, func() bool { return stub.hits.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	c.NewChat()
	assert.False(t, c.Pending(), "new chat may send immediately")

	select {
	case out := <-done:
		assert.Equal(t, StatusStale, out.Status)
		assert.ErrorIs(t, out.Err, ErrSuperseded)
	case <-time.After(3 * time.Second):
		t.Fatal("in-flight exchange did not finish")
	}

	snap := c.Snapshot()
	assert.Empty(t, snap.Turns, "stale reply never reaches the new chat")
	assert.Equal(t, []string{agent.DefaultAction}, snap.Actions)
	assert.False(t, snap.Pending)
}

func TestGreet_ReplacesDefaultActions(t *testing.T) {
	stub := newStubAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"suggestedActions":["Book a call","Pricing"]}`))
			return
		}
		w.Write([]byte(`{"message":"ok"}`))
	})
	c, _, _ := newTestController(t, stub, 5, false)

	require.NoError(t, c.Greet(context.Background()))
	assert.Equal(t, []string{"Book a call", "Pricing"}, c.Snapshot().Actions)
}

func TestGreet_FailureKeepsDefault(t *testing.T) {
	stub := newStubAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c, _, _ := newTestController(t, stub, 5, false)

	assert.Error(t, c.Greet(context.Background()))
	assert.Equal(t, []string{agent.DefaultAction}, c.Snapshot().Actions)
}

func TestGreet_SkippedOnceChatStarted(t *testing.T) {
	stub := newStubAgent(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"suggestedActions":["Greeting"]}`))
			return
		}
		w.Write([]byte(`{"message":"ok","suggestedActions":["After"]}`))
	})
	c, _, _ := newTestController(t, stub, 5, false)

	_, err := c.Send(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.NoError(t, c.Greet(context.Background()))
	assert.Equal(t, []string{"After"}, c.Snapshot().Actions)
}

// =============================================================================
// ACTIONS AND SETTINGS
// =============================================================================

func TestChooseAction_FillsWithoutSending(t *testing.T) {
	stub := newStubAgent(t, reply(`{}`))
	c, _, _ := newTestController(t, stub, 5, false)

	v, err := c.ChooseAction(0)
	require.NoError(t, err)
	assert.Equal(t, agent.DefaultAction, v)

	_, err = c.ChooseAction(3)
	assert.ErrorIs(t, err, ErrNoSuchAction)

	assert.Empty(t, c.Snapshot().Turns)
	assert.Equal(t, int32(0), stub.hits.Load())
}

func TestSaveSettings(t *testing.T) {
	first := newStubAgent(t, reply(`{"message":"from first"}`))
	second := newStubAgent(t, reply(`{"message":"from second"}`))
	c, notices, _ := newTestController(t, first, 5, false)

	err := c.SaveSettings(config.Candidate{EndpointURL: second.srv.URL, TimeoutSeconds: "abc"})
	var verrs config.ValidateErrors
	require.True(t, errors.As(err, &verrs))
	n, _ := notices.last()
	assert.Equal(t, NoticeError, n.Kind)
	assert.Equal(t, first.srv.URL+"/webhook/chat", c.Settings().EndpointURL, "invalid save changes nothing")

	require.NoError(t, c.SaveSettings(config.Candidate{EndpointURL: second.srv.URL, TimeoutSeconds: "7"}))
	n, _ = notices.last()
	assert.Equal(t, NoticeSuccess, n.Kind)
	assert.Equal(t, "Settings saved successfully.", n.Message)

	_, err = c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"from second"}, agentTexts(c.Snapshot().Turns))
	assert.Equal(t, int32(0), first.hits.Load())
}

func TestSaveSettings_RejectsOverflowingTimeout(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"on time"}`))
	c, notices, store := newTestController(t, stub, 5, false)

	err := c.SaveSettings(config.Candidate{EndpointURL: stub.srv.URL, TimeoutSeconds: "10000000000"})
	var verrs config.ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has(config.FieldTimeoutSeconds))
	n, _ := notices.last()
	assert.Equal(t, NoticeError, n.Kind)
	assert.Equal(t, 5*time.Second, store.Timeout())

	out, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, []string{"on time"}, agentTexts(c.Snapshot().Turns))
}

func TestChangeHandlerFires(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	store := config.NewStore(config.NewMemoryBackend())
	_, err := store.Save(config.Candidate{EndpointURL: stub.srv.URL, TimeoutSeconds: "5"})
	require.NoError(t, err)

	var changes atomic.Int32
	c := New(store, WithChangeHandler(func() { changes.Add(1) }))
	_, err = c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, changes.Load(), int32(3), "begin, reply and finish each signal")
}

func TestExchange_RunTwiceReturnsSameOutcome(t *testing.T) {
	stub := newStubAgent(t, reply(`{"message":"ok"}`))
	c, _, _ := newTestController(t, stub, 5, false)

	ex, err := c.Begin("hello", nil)
	require.NoError(t, err)
	first := ex.Run(context.Background())
	second := ex.Run(context.Background())
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, int32(1), stub.hits.Load())
	assert.Len(t, c.Snapshot().Turns, 2)
}

func TestReloadSettings_NoticeOnlyOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	backend, err := config.NewFileBackend(path)
	require.NoError(t, err)
	store := config.NewStore(backend)
	_, err = store.Save(config.Candidate{EndpointURL: "http://localhost:5678/a", TimeoutSeconds: "30"})
	require.NoError(t, err)

	notices := &noticeLog{}
	c := New(store, WithNoticeHandler(notices.add))

	// Our own save touched the file; nothing differs.
	c.ReloadSettings()
	assert.Empty(t, notices.all())

	external, err := config.NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, external.Write(config.Settings{EndpointURL: "http://localhost:5678/b", TimeoutSeconds: 12}))

	c.ReloadSettings()
	n, ok := notices.last()
	require.True(t, ok)
	assert.Equal(t, NoticeInfo, n.Kind)
	assert.Equal(t, "http://localhost:5678/b", c.Settings().EndpointURL)
	assert.Equal(t, 12, c.Settings().TimeoutSeconds)
}
