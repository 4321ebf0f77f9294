package logx

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "classhud/internal/transport"
)

const (
	telegramQueue   = 128
	telegramMaxText = 3500
)

// telegramSink forwards log lines at or above a minimum level to one chat.
// Lines are queued without blocking the caller and paced by a limiter; when
// the queue is full the line is dropped.
type telegramSink struct {
	sender kit.Sender
	queue  chan string

	mu      sync.Mutex
	target  kit.ChatTarget
	min     zerolog.Level
	limiter *rate.Limiter
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newTelegramSink(sender kit.Sender) *telegramSink {
	return &telegramSink{
		sender:  sender,
		queue:   make(chan string, telegramQueue),
		min:     zerolog.WarnLevel,
		limiter: rate.NewLimiter(1, 1),
	}
}

func (t *telegramSink) configure(cfg TelegramConfig) {
	rps := max(1, cfg.RatePerSec)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.target = kit.ChatTarget{ChatID: cfg.ChatID, ThreadID: cfg.ThreadID}
	t.min = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	t.limiter.SetLimit(rate.Limit(rps))
	t.limiter.SetBurst(rps)

	if cfg.Enabled && t.sender != nil && t.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.wg.Add(1)
		go t.run(ctx)
	}
}

func (t *telegramSink) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
}

func (t *telegramSink) run(ctx context.Context) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			t.mu.Lock()
			to, lim := t.target, t.limiter
			t.mu.Unlock()
			if err := lim.Wait(ctx); err != nil {
				return
			}
			sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			_, _ = t.sender.SendText(sctx, to, text, &kit.SendOptions{DisablePreview: true, Silent: true})
			cancel()
		}
	}
}

func (t *telegramSink) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.NoLevel, p)
}

func (t *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	t.mu.Lock()
	ok := t.sender != nil && t.target.ChatID != 0 && level >= t.min && level != zerolog.NoLevel
	t.mu.Unlock()
	if !ok {
		return len(p), nil
	}
	if text := formatLine(p); text != "" {
		select {
		case t.queue <- text:
		default:
		}
	}
	return len(p), nil
}

// formatLine renders one JSON log line as "[LEVEL] message" followed by one
// key=value per line. Timestamp and caller are left out.
func formatLine(p []byte) string {
	var buf bytes.Buffer
	fieldName := func(i any) string { return "\n" + fmt.Sprint(i) + "=" }
	cw := zerolog.ConsoleWriter{
		Out:                &buf,
		NoColor:            true,
		PartsOrder:         []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel:        func(i any) string { return "[" + strings.ToUpper(fmt.Sprint(i)) + "]" },
		FormatFieldName:    fieldName,
		FormatErrFieldName: fieldName,
	}
	if _, err := cw.Write(p); err != nil {
		return truncate(strings.TrimSpace(string(p)), telegramMaxText)
	}
	out := strings.ReplaceAll(buf.String(), " \n", "\n")
	return truncate(strings.TrimSpace(out), telegramMaxText)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
