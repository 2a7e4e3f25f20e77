package adapter

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"resi-tracker/internal/core/proxy"
	"resi-tracker/internal/features/tracking/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdapter(t *testing.T, opts CekResiOptions) *CekResiAdapter {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = "https://cekresi.com/"
	}
	a, err := NewCekResiAdapter(opts)
	require.NoError(t, err)
	a.logger = zap.NewNop()
	return a
}

// TestNewCekResiAdapter_Defaults verifies bounded waits default to the site's usual values.
func TestNewCekResiAdapter_Defaults(t *testing.T) {
	a := newTestAdapter(t, CekResiOptions{})

	assert.Equal(t, 10*time.Second, a.opts.WaitTimeout)
	assert.Equal(t, 60*time.Second, a.opts.LookupTimeout)
}

// TestNewCekResiAdapter_InvalidURL verifies the aggregator URL is validated up front.
func TestNewCekResiAdapter_InvalidURL(t *testing.T) {
	_, err := NewCekResiAdapter(CekResiOptions{BaseURL: "cekresi.com"})
	assert.Error(t, err)

	_, err = NewCekResiAdapter(CekResiOptions{BaseURL: "http://[::1"})
	assert.Error(t, err)
}

// TestCekResiAdapter_searchURL verifies the waybill is passed as the noresi query value.
func TestCekResiAdapter_searchURL(t *testing.T) {
	a := newTestAdapter(t, CekResiOptions{})

	assert.Equal(t, "https://cekresi.com/?noresi=10008447322101", a.searchURL("10008447322101"))
	assert.Equal(t, "https://cekresi.com/?noresi=AB+12%2634", a.searchURL("AB 12&34"))
}

// TestCekResiAdapter_redirectURL verifies relative and absolute carrier page templates.
func TestCekResiAdapter_redirectURL(t *testing.T) {
	a := newTestAdapter(t, CekResiOptions{})

	relative, err := a.redirectURL("cek-resi-indah-cargo.php?noresi=%s", "IND123")
	require.NoError(t, err)
	assert.Equal(t, "https://cekresi.com/cek-resi-indah-cargo.php?noresi=IND123", relative)

	absolute, err := a.redirectURL("https://cekresi.com/cek/?kurir=KI&noresi=%s", "KI 9")
	require.NoError(t, err)
	assert.Equal(t, "https://cekresi.com/cek/?kurir=KI&noresi=KI+9", absolute)
}

// TestCekResiAdapter_redirectURL_DefaultRegistry verifies every redirect carrier resolves.
func TestCekResiAdapter_redirectURL_DefaultRegistry(t *testing.T) {
	a := newTestAdapter(t, CekResiOptions{})

	for _, e := range domain.DefaultExpeditions() {
		if e.Trigger.Kind != domain.TriggerRedirect {
			continue
		}
		target, err := a.redirectURL(e.Trigger.PathTemplate, "123")
		require.NoError(t, err, e.Name)
		assert.Contains(t, target, "noresi=123", e.Name)
	}
}

// TestCekResiAdapter_startProxy verifies proxy selection without credentials.
func TestCekResiAdapter_startProxy(t *testing.T) {
	direct := newTestAdapter(t, CekResiOptions{})
	addr, stop, err := direct.startProxy(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addr)
	stop()

	plain := newTestAdapter(t, CekResiOptions{
		Proxy: proxy.Settings{Enabled: true, Hostname: "proxy.local", Port: 3128},
	})
	addr, stop, err = plain.startProxy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local:3128", addr)
	stop()
}

// TestCekResiAdapter_startProxy_Forwarder verifies authenticated proxies get a local forwarder.
func TestCekResiAdapter_startProxy_Forwarder(t *testing.T) {
	a := newTestAdapter(t, CekResiOptions{
		Proxy: proxy.Settings{Enabled: true, Hostname: "proxy.local", Port: 3128, Username: "u", Password: "p"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, stop, err := a.startProxy(ctx)
	require.NoError(t, err)
	assert.Contains(t, addr, "http://127.0.0.1:")
	stop()
}

// TestCekResiAdapter_FetchTrackingPage_Cancelled verifies a cancelled caller gets a retrieval error.
func TestCekResiAdapter_FetchTrackingPage_Cancelled(t *testing.T) {
	a := newTestAdapter(t, CekResiOptions{BrowserBin: "/nonexistent/chromium"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.FetchTrackingPage(ctx, "123", domain.SelectCarrier("JNE"))
	require.Error(t, err)

	var re *domain.RetrievalError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, StageLaunch, re.Stage)
}

// TestCekResiAdapter_FetchTrackingPage_Live runs a real lookup against cekresi.com.
// Set CEKRESI_E2E=1 to enable it.
func TestCekResiAdapter_FetchTrackingPage_Live(t *testing.T) {
	if os.Getenv("CEKRESI_E2E") != "1" {
		t.Skip("set CEKRESI_E2E=1 to run against the live aggregator")
	}

	a := newTestAdapter(t, CekResiOptions{Headless: true, Stealth: true})
	registry := domain.MustNewRegistry(domain.DefaultExpeditions())
	exp, ok := registry.Resolve("ANTERAJA")
	require.True(t, ok)

	start := time.Now()
	html, err := a.FetchTrackingPage(context.Background(), "10008447322101", exp.Trigger)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, a.opts.LookupTimeout+5*time.Second)
	if err != nil {
		var re *domain.RetrievalError
		require.True(t, errors.As(err, &re))
		t.Logf("lookup failed at stage %s: %v", re.Stage, re.Err)
		return
	}

	outcome := newTestParser().Parse(html)
	if outcome.Success {
		assert.NotEmpty(t, outcome.History)
	} else {
		assert.NotEmpty(t, outcome.Reason)
	}
}
