package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func (r *recordingNotifier) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func TestDispatcherCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, NewTrackerWithClock(DefaultCooldown, clock.Now), time.Second)
	ctx := context.Background()

	if !d.SendAlert(ctx, "Abyssal whip", 1_500_000, 1_550_000, 19_000) {
		t.Fatal("first alert should be sent")
	}
	first, _ := d.Tracker().LastSent("Abyssal whip")

	clock.Advance(179 * time.Second)
	if d.SendAlert(ctx, "Abyssal whip", 1_500_000, 1_550_000, 19_000) {
		t.Error("alert inside cooldown should be suppressed")
	}
	if last, _ := d.Tracker().LastSent("Abyssal whip"); !last.Equal(first) {
		t.Errorf("suppressed attempt moved timestamp from %v to %v", first, last)
	}

	if !d.SendAlert(ctx, "Shark", 800, 900, 82) {
		t.Error("cooldown should be per item")
	}

	clock.Advance(time.Second)
	if !d.SendAlert(ctx, "Abyssal whip", 1_500_000, 1_550_000, 19_000) {
		t.Error("alert should be allowed once 180s have elapsed")
	}
	if notifier.calls() != 3 {
		t.Errorf("notifier called %d times, want 3", notifier.calls())
	}
}

func TestDispatcherFailureStartsCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	notifier := &recordingNotifier{err: errors.New("boom")}
	d := NewDispatcher(notifier, NewTrackerWithClock(DefaultCooldown, clock.Now), time.Second)

	if got := d.Dispatch(context.Background(), "Shark", 800, 900, 82); got != Failed {
		t.Fatalf("Dispatch() = %v, want failed", got)
	}
	if _, ok := d.Tracker().LastSent("Shark"); !ok {
		t.Error("failed attempt should still record a timestamp")
	}

	notifier.err = nil
	if got := d.Dispatch(context.Background(), "Shark", 800, 900, 82); got != Suppressed {
		t.Errorf("retry inside cooldown = %v, want suppressed", got)
	}
}

func TestDispatcherWithoutNotifier(t *testing.T) {
	tracker := NewTracker(DefaultCooldown)
	d := NewDispatcher(nil, tracker, 0)

	if d.SendAlert(context.Background(), "Shark", 800, 900, 82) {
		t.Error("SendAlert should fail without a notifier")
	}
	if _, ok := tracker.LastSent("Shark"); ok {
		t.Error("disabled dispatcher must not touch cooldown state")
	}
}

func TestTrackerClear(t *testing.T) {
	tracker := NewTracker(time.Minute)
	tracker.Acquire("Shark")
	if !tracker.InCooldown("Shark") {
		t.Fatal("Shark should be in cooldown")
	}
	tracker.Clear()
	if tracker.InCooldown("Shark") {
		t.Error("Clear should reset cooldowns")
	}
}

func TestFormatAlert(t *testing.T) {
	text := FormatAlert("Abyssal whip", 1500000, 1550000, 19000)
	for _, want := range []string{"Abyssal whip", "1,500,000 gp", "1,550,000 gp", "19,000 gp"} {
		if !strings.Contains(text, want) {
			t.Errorf("alert text %q missing %q", text, want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("down")}

	if err := (MultiNotifier{bad, ok}).Notify(context.Background(), "hi"); err != nil {
		t.Errorf("one successful child should succeed: %v", err)
	}
	if err := (MultiNotifier{bad}).Notify(context.Background(), "hi"); err == nil {
		t.Error("expected error when every child fails")
	}
	if err := (MultiNotifier{}).Notify(context.Background(), "hi"); err == nil {
		t.Error("expected error for empty notifier set")
	}
}

func TestWebhookNotifier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content is not success", http.StatusNoContent, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got webhookPayload
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode body: %v", err)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := NewWebhookNotifier(server.URL).Notify(context.Background(), "flip!")
			if (err != nil) != tt.wantErr {
				t.Errorf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Content != "flip!" {
				t.Errorf("payload content = %q, want %q", got.Content, "flip!")
			}
		})
	}
}

func TestWebhookNotifierUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if err := NewWebhookNotifier(url).Notify(context.Background(), "flip!"); err == nil {
		t.Error("expected error for closed server")
	}
}

type fakeSender struct {
	failures int
	sent     []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifierRetries(t *testing.T) {
	sender := &fakeSender{failures: 2}
	n := newTelegramNotifier(sender, 42, 3, time.Millisecond)

	if err := n.Notify(context.Background(), "Margin: 1.5k"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 || msg.ParseMode != "MarkdownV2" {
		t.Errorf("unexpected message config: chat %d mode %q", msg.ChatID, msg.ParseMode)
	}
	if msg.Text != "Margin: 1\\.5k" {
		t.Errorf("text = %q, want escaped", msg.Text)
	}
}

func TestTelegramNotifierGivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	n := newTelegramNotifier(sender, 42, 2, time.Millisecond)

	if err := n.SendRecovery(context.Background(), 3); err == nil {
		t.Error("expected error after exhausting retries")
	}
	if sender.failures != 8 {
		t.Errorf("attempts = %d, want 2", 10-sender.failures)
	}
}

type blockingSender struct {
	release chan struct{}
}

func (b *blockingSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	return tgbotapi.Message{}, nil
}

func TestTelegramSendHonorsDeliveryTimeout(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	t.Cleanup(func() { close(sender.release) })
	n := newTelegramNotifier(sender, 42, 3, time.Millisecond)
	d := NewDispatcher(n, NewTracker(DefaultCooldown), 50*time.Millisecond)

	start := time.Now()
	outcome := d.Dispatch(context.Background(), "Abyssal whip", 1_500_000, 1_550_000, 19_000)
	elapsed := time.Since(start)

	if outcome != Failed {
		t.Errorf("outcome = %v, want Failed", outcome)
	}
	if elapsed > time.Second {
		t.Errorf("Dispatch took %v with a 50ms timeout", elapsed)
	}
}

func TestNewTelegramNotifierInvalidChatID(t *testing.T) {
	if _, err := NewTelegramNotifier("", "not-a-number", 3, time.Second, DefaultTimeout); err == nil {
		t.Error("expected error for invalid chat ID")
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Dragon_bones", "Dragon\\_bones"},
		{"Price: 100.50", "Price: 100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"end!", "end\\!"},
		{"", ""},
		{`C:\bank`, `C:\\bank`},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeMarkdownV2(tt.input); got != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
