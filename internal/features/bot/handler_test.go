package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resi-tracker/internal/features/tracking/domain"
	"resi-tracker/internal/features/tracking/presenter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// MockContext records what handlers send.
type MockContext struct {
	tele.Context
	PayloadVal string
	TextVal    string
	QueryVal   string
	Sent       []interface{}
	SentOpts   [][]interface{}
	Answered   *tele.QueryResponse
	// RejectMarkdown makes MarkdownV2 sends fail the way Telegram rejects bad entities.
	RejectMarkdown bool
}

func (m *MockContext) Message() *tele.Message {
	return &tele.Message{Payload: m.PayloadVal, Text: m.TextVal}
}

func (m *MockContext) Query() *tele.Query {
	return &tele.Query{Text: m.QueryVal}
}

func (m *MockContext) Send(what interface{}, opts ...interface{}) error {
	if m.RejectMarkdown {
		for _, opt := range opts {
			if opt == tele.ModeMarkdownV2 {
				return errors.New("telegram: Bad Request: can't parse entities (400)")
			}
		}
	}
	m.Sent = append(m.Sent, what)
	m.SentOpts = append(m.SentOpts, opts)
	return nil
}

func (m *MockContext) Notify(action tele.ChatAction) error {
	return nil
}

func (m *MockContext) Answer(resp *tele.QueryResponse) error {
	m.Answered = resp
	return nil
}

func (m *MockContext) last() string {
	if len(m.Sent) == 0 {
		return ""
	}
	s, _ := m.Sent[len(m.Sent)-1].(string)
	return s
}

// mockTracker is a mock implementation of Tracker for testing.
type mockTracker struct {
	result      *domain.LookupResult
	err         error
	lastCarrier string
	lastWaybill string
	calls       int
}

func (m *mockTracker) Lookup(ctx context.Context, carrier, waybill string) (*domain.LookupResult, error) {
	m.calls++
	m.lastCarrier = carrier
	m.lastWaybill = waybill
	return m.result, m.err
}

func (m *mockTracker) IsKnown(carrier string) bool {
	return domain.NormalizeName(carrier) == "JNE"
}

func (m *mockTracker) Expeditions() []string {
	return []string{"JNE", "SHOPEE EXPRESS"}
}

func newTestBot(tracker Tracker) *Bot {
	return &Bot{
		tracker: tracker,
		ctx:     context.Background(),
		cancel:  func() {},
		logger:  zap.NewNop(),
	}
}

func TestHandleCekResi(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		tracker := &mockTracker{result: &domain.LookupResult{Success: true, Text: `\| a \|`}}
		ctx := &MockContext{PayloadVal: `"SHOPEE EXPRESS" "SPXID123"`}

		require.NoError(t, newTestBot(tracker).handleCekResi(ctx))

		assert.Equal(t, "SHOPEE EXPRESS", tracker.lastCarrier)
		assert.Equal(t, "SPXID123", tracker.lastWaybill)
		assert.Equal(t, `\| a \|`, ctx.last())
		assert.Contains(t, ctx.SentOpts[0], tele.ModeMarkdownV2)
	})

	t.Run("Failure is plain text", func(t *testing.T) {
		tracker := &mockTracker{result: &domain.LookupResult{Success: false, Text: domain.ReasonNotFound}}
		ctx := &MockContext{PayloadVal: `"JNE" "123"`}

		require.NoError(t, newTestBot(tracker).handleCekResi(ctx))

		assert.Equal(t, "Data Not Found.", ctx.last())
		assert.Empty(t, ctx.SentOpts[0])
	})

	t.Run("Usage", func(t *testing.T) {
		tracker := &mockTracker{}
		for _, payload := range []string{"", `"JNE"`, `"JNE" "1" "2"`} {
			ctx := &MockContext{PayloadVal: payload}
			require.NoError(t, newTestBot(tracker).handleCekResi(ctx))
			assert.Contains(t, ctx.last(), "Accepted command is like:")
			assert.Contains(t, ctx.last(), `/cek_resi "SHOPEE EXPRESS" "YOUR AWB"`)
		}
		assert.Zero(t, tracker.calls)
	})

	t.Run("Unknown carrier", func(t *testing.T) {
		tracker := &mockTracker{err: domain.ErrUnknownCarrier}
		ctx := &MockContext{PayloadVal: `"DHL" "123"`}

		require.NoError(t, newTestBot(tracker).handleCekResi(ctx))

		assert.Contains(t, ctx.last(), "Sorry, Ekspedisi DHL tidak tersedia")
		assert.Contains(t, ctx.last(), "*Here are the available expeditions:*")
		assert.Contains(t, ctx.SentOpts[0], tele.ModeMarkdownV2)
	})

	t.Run("Retrieval error hides details", func(t *testing.T) {
		tracker := &mockTracker{err: &domain.RetrievalError{Stage: "launch", Err: errors.New("chromium missing")}}
		ctx := &MockContext{PayloadVal: `"JNE" "123"`}

		require.NoError(t, newTestBot(tracker).handleCekResi(ctx))

		assert.Equal(t, replyError, ctx.last())
		assert.NotContains(t, ctx.last(), "chromium")
	})

	t.Run("Rejected MarkdownV2 falls back to plain text", func(t *testing.T) {
		table := domain.HistoryTable{{"Tanggal", "Keterangan"}, {"01 Mar", "Diterima oleh [BUDI]!"}}
		tracker := &mockTracker{result: &domain.LookupResult{
			Success: true,
			Text:    presenter.Format(domain.Succeeded(table)),
			Outcome: domain.Succeeded(table),
		}}
		ctx := &MockContext{PayloadVal: `"JNE" "123"`, RejectMarkdown: true}

		require.NoError(t, newTestBot(tracker).handleCekResi(ctx))

		require.Len(t, ctx.Sent, 1)
		assert.Equal(t, presenter.RenderTable(table), ctx.last())
		assert.Contains(t, ctx.last(), "Diterima oleh [BUDI]!")
		assert.Empty(t, ctx.SentOpts[0])
	})

	t.Run("Long replies are split", func(t *testing.T) {
		line := strings.Repeat("x", 100) + "\n"
		tracker := &mockTracker{result: &domain.LookupResult{Success: true, Text: strings.Repeat(line, 100)}}
		ctx := &MockContext{PayloadVal: `"JNE" "123"`}

		require.NoError(t, newTestBot(tracker).handleCekResi(ctx))

		assert.Len(t, ctx.Sent, 3)
	})
}

func TestHandleCekEkspedisi(t *testing.T) {
	b := newTestBot(&mockTracker{})

	ctx := &MockContext{PayloadVal: "jne"}
	require.NoError(t, b.handleCekEkspedisi(ctx))
	assert.Equal(t, "Ekspedisi jne tersedia. "+smilingFace, ctx.last())

	ctx = &MockContext{PayloadVal: "DHL EXPRESS"}
	require.NoError(t, b.handleCekEkspedisi(ctx))
	assert.True(t, strings.HasPrefix(ctx.last(), "Sorry, Ekspedisi DHL EXPRESS tidak tersedia"))
	assert.Contains(t, ctx.last(), `\- *Shopee express*`)

	ctx = &MockContext{}
	require.NoError(t, b.handleCekEkspedisi(ctx))
	assert.True(t, strings.HasPrefix(ctx.last(), "*Here are the available expeditions:*"))
}

func TestSimpleCommands(t *testing.T) {
	b := newTestBot(&mockTracker{})

	tests := []struct {
		name    string
		handler func(tele.Context) error
		ctx     *MockContext
		want    string
	}{
		{"start", b.handleStart, &MockContext{}, replyStart},
		{"caps", b.handleCaps, &MockContext{PayloadVal: "hello  world"}, "HELLO WORLD"},
		{"caps empty", b.handleCaps, &MockContext{}, usageCaps},
		{"hex2rgb", b.handleHexToRGB, &MockContext{PayloadVal: "#FFAABB"}, "RGB value for #FFAABB: (255, 170, 187)"},
		{"hex2rgb bare", b.handleHexToRGB, &MockContext{PayloadVal: "00ff00"}, "RGB value for #00ff00: (0, 255, 0)"},
		{"hex2rgb invalid", b.handleHexToRGB, &MockContext{PayloadVal: "#12345"}, replyInvalidHex},
		{"hex2rgb empty", b.handleHexToRGB, &MockContext{}, replyInvalidHex},
		{"echo", b.handleText, &MockContext{TextVal: "halo pak"}, "halo pak"},
		{"unknown command", b.handleText, &MockContext{TextVal: "/foo bar"}, replyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.handler(tt.ctx))
			assert.Equal(t, tt.want, tt.ctx.last())
		})
	}
}

func TestHandleInlineCaps(t *testing.T) {
	b := newTestBot(&mockTracker{})

	ctx := &MockContext{}
	require.NoError(t, b.handleInlineCaps(ctx))
	assert.Nil(t, ctx.Answered)

	ctx = &MockContext{QueryVal: "shout"}
	require.NoError(t, b.handleInlineCaps(ctx))
	require.NotNil(t, ctx.Answered)
	require.Len(t, ctx.Answered.Results, 1)
	article, ok := ctx.Answered.Results[0].(*tele.ArticleResult)
	require.True(t, ok)
	assert.Equal(t, "SHOUT", article.Text)
}

func TestNew_Offline(t *testing.T) {
	b, err := New(Config{Token: "123:abc", Offline: true}, &mockTracker{})
	require.NoError(t, err)

	cmds := b.commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, "cek_resi", cmds[0].name)
	assert.Equal(t, "cek_resi_cek_ekspedisi", cmds[1].name)

	b.cancel()
	assert.Error(t, b.ctx.Err())
}

func TestBot_StopBeforeStart(t *testing.T) {
	b, err := New(Config{Token: "123:abc", Offline: true}, &mockTracker{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		b.Stop()
		b.Stop()
		b.Start()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop before Start blocked")
	}
	assert.Error(t, b.ctx.Err())
}
