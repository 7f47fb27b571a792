package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/shared/protocol"
)

func TestBargeIn_CancelsInFlightTurnAndDiscardsTTS(t *testing.T) {
	h := newHarness(t, "a long answer in progress")
	h.llm.block = make(chan struct{}) // never closed: GenerateResponse blocks until ctx is cancelled
	sess, err := h.mgr.StartSession(context.Background(), "user1", "agent1", models.SessionTypeWeb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.mgr.HandleAudioFrame(context.Background(), sess.ID, []byte{0x01})
	h.stt.feed(sess.ID, "first utterance", true)

	// Wait for the turn to reach GENERATING before interrupting it.
	deadline := time.Now().Add(time.Second)
	for sess.getState() != models.SessionStateGenerating && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if sess.getState() != models.SessionStateGenerating {
		t.Fatalf("expected turn to reach GENERATING, got %v", sess.getState())
	}

	// New audio while GENERATING is a barge-in.
	h.mgr.HandleAudioFrame(context.Background(), sess.ID, []byte{0x02})

	waitForState(t, sess, models.SessionStateListening)

	if h.messages.count() != 1 {
		t.Errorf("expected only the user message persisted (LLM cancelled before completion), got %d", h.messages.count())
	}
	if h.tts.calls != 0 {
		t.Error("expected TTS never invoked for a cancelled turn")
	}
}

func TestHandleAudioFrame_IdleTransitionsToListening(t *testing.T) {
	h := newHarness(t, "hi")
	sess, err := h.mgr.StartSession(context.Background(), "user1", "agent1", models.SessionTypeWeb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sess.getState() != models.SessionStateIdle {
		t.Fatalf("expected new session to be IDLE, got %v", sess.getState())
	}
	h.mgr.HandleAudioFrame(context.Background(), sess.ID, []byte{0x01})
	if sess.getState() != models.SessionStateListening {
		t.Errorf("expected LISTENING after first audio frame, got %v", sess.getState())
	}
}

func TestSTTSendFailure_MarksDegradedAndEmitsError(t *testing.T) {
	h := newHarness(t, "hi")
	h.stt.sendOK = false
	sess, err := h.mgr.StartSession(context.Background(), "user1", "agent1", models.SessionTypeWeb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.mgr.HandleAudioFrame(context.Background(), sess.ID, []byte{0x01})

	if !sess.Degraded() {
		t.Error("expected session to be marked degraded after a failed SendAudio")
	}
	if sess.getState() != models.SessionStateListening {
		t.Errorf("expected session to stay LISTENING while degraded, got %v", sess.getState())
	}
	if !h.outbound.has(protocol.EventServiceError) {
		t.Error("expected a service_error event to be emitted")
	}
}

func TestTranscript_ClearsDegradedFlag(t *testing.T) {
	h := newHarness(t, "hi")
	h.stt.sendOK = false
	sess, err := h.mgr.StartSession(context.Background(), "user1", "agent1", models.SessionTypeWeb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.mgr.HandleAudioFrame(context.Background(), sess.ID, []byte{0x01})
	if !sess.Degraded() {
		t.Fatal("expected session to be degraded before STT recovers")
	}

	h.stt.feed(sess.ID, "back online", false)
	if sess.Degraded() {
		t.Error("expected a transcript callback to clear the degraded flag")
	}
}
