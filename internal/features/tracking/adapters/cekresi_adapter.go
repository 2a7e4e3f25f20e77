package adapter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"resi-tracker/internal/core/logger"
	"resi-tracker/internal/core/proxy"
	"resi-tracker/internal/features/tracking/domain"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

const (
	// carrierListSelector appears once dCek() has filled the carrier picker.
	carrierListSelector = "#selexpid .hideContent"
	// resultAlertSelector appears once the aggregator rendered a result for the carrier.
	resultAlertSelector = "#results .alert"

	populateCarriersJS = `() => dCek()`
	selectCarrierJS    = `(code) => { setExp(code); doCheckR(); }`

	// anyVisibleJS is true once some element matching sel is rendered with a box.
	anyVisibleJS = `(sel) => Array.from(document.querySelectorAll(sel)).some(
		(el) => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length)
	)`
)

// Retrieval stages reported in domain.RetrievalError.
const (
	StageProxy    = "proxy"
	StageLaunch   = "launch"
	StageConnect  = "connect"
	StageContext  = "context"
	StageNavigate = "navigate"
	StagePopulate = "populate"
	StageSelect   = "select"
	StageResults  = "results"
	StageCapture  = "capture"
)

// CekResiOptions configures CekResiAdapter.
type CekResiOptions struct {
	// BaseURL is the aggregator search page, e.g. "https://cekresi.com/".
	BaseURL string
	// WaitTimeout bounds each wait for dynamic content.
	WaitTimeout time.Duration
	// LookupTimeout bounds a whole lookup, browser start-up included.
	LookupTimeout time.Duration
	// BrowserBin overrides the Chromium binary; empty lets rod find or download one.
	BrowserBin string
	// Headless runs Chromium without a window.
	Headless bool
	// Stealth opens pages through go-rod/stealth.
	Stealth bool
	// Proxy is the optional upstream proxy.
	Proxy proxy.Settings
}

// CekResiAdapter drives cekresi.com in a headless browser.
// Every call owns its own browser process and incognito context.
type CekResiAdapter struct {
	baseURL *url.URL
	opts    CekResiOptions
	logger  *zap.Logger
}

// NewCekResiAdapter creates a new CekResiAdapter.
func NewCekResiAdapter(opts CekResiOptions) (*CekResiAdapter, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregator URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid aggregator URL: %q", opts.BaseURL)
	}

	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 60 * time.Second
	}

	return &CekResiAdapter{
		baseURL: base,
		opts:    opts,
		logger:  logger.Get(),
	}, nil
}

// FetchTrackingPage submits waybill for the carrier selected by trigger and returns the
// rendered page once the result banner is present.
func (a *CekResiAdapter) FetchTrackingPage(ctx context.Context, waybill string, trigger domain.Trigger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.LookupTimeout)
	defer cancel()

	start := time.Now()
	a.logger.Info("Fetching tracking page",
		zap.String("waybill", waybill),
		zap.String("trigger_kind", string(trigger.Kind)),
	)

	proxyAddr, stopProxy, err := a.startProxy(ctx)
	if err != nil {
		return "", &domain.RetrievalError{Stage: StageProxy, Err: err}
	}
	defer stopProxy()

	l := launcher.New().
		Context(ctx).
		Headless(a.opts.Headless).
		NoSandbox(true)
	if a.opts.BrowserBin != "" {
		l = l.Bin(a.opts.BrowserBin)
	}
	if proxyAddr != "" {
		l = l.Proxy(proxyAddr)
	}

	u, err := l.Launch()
	if err != nil {
		return "", &domain.RetrievalError{Stage: StageLaunch, Err: err}
	}
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return "", &domain.RetrievalError{Stage: StageConnect, Err: err}
	}
	defer browser.Close()

	incognito, err := browser.Incognito()
	if err != nil {
		return "", &domain.RetrievalError{Stage: StageContext, Err: err}
	}
	defer incognito.Close()

	page, err := a.newPage(incognito)
	if err != nil {
		return "", &domain.RetrievalError{Stage: StageContext, Err: err}
	}

	html, err := a.drive(page, waybill, trigger)
	if err != nil {
		a.logger.Warn("Tracking page retrieval failed",
			zap.String("waybill", waybill),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	a.logger.Debug("Tracking page captured",
		zap.String("waybill", waybill),
		zap.Int("bytes", len(html)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return html, nil
}

// drive runs the page interaction: search, populate the carrier picker, select, wait.
func (a *CekResiAdapter) drive(page *rod.Page, waybill string, trigger domain.Trigger) (string, error) {
	if err := navigate(page, a.searchURL(waybill)); err != nil {
		return "", &domain.RetrievalError{Stage: StageNavigate, Err: err}
	}

	if _, err := page.Eval(populateCarriersJS); err != nil {
		return "", &domain.RetrievalError{Stage: StagePopulate, Err: err}
	}
	if err := waitVisible(page, carrierListSelector, a.opts.WaitTimeout); err != nil {
		return "", &domain.RetrievalError{Stage: StagePopulate, Err: err}
	}

	if err := a.applyTrigger(page, waybill, trigger); err != nil {
		return "", &domain.RetrievalError{Stage: StageSelect, Err: err}
	}

	if err := waitVisible(page, resultAlertSelector, a.opts.WaitTimeout); err != nil {
		return "", &domain.RetrievalError{Stage: StageResults, Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return "", &domain.RetrievalError{Stage: StageCapture, Err: err}
	}
	return html, nil
}

// applyTrigger selects the carrier on the page.
func (a *CekResiAdapter) applyTrigger(page *rod.Page, waybill string, trigger domain.Trigger) error {
	switch trigger.Kind {
	case domain.TriggerSelect:
		_, err := page.Eval(selectCarrierJS, trigger.Code)
		return err
	case domain.TriggerRedirect:
		target, err := a.redirectURL(trigger.PathTemplate, waybill)
		if err != nil {
			return err
		}
		return navigate(page, target)
	default:
		return fmt.Errorf("unsupported trigger kind %q", trigger.Kind)
	}
}

func (a *CekResiAdapter) newPage(b *rod.Browser) (*rod.Page, error) {
	if a.opts.Stealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{})
}

// startProxy returns the proxy address Chromium should use and a release func.
func (a *CekResiAdapter) startProxy(ctx context.Context) (string, func(), error) {
	noop := func() {}

	if !a.opts.Proxy.HasProxy() {
		return "", noop, nil
	}
	if !a.opts.Proxy.HasCredentials() {
		return a.opts.Proxy.HostPort(), noop, nil
	}

	forwarder, err := proxy.NewForwardingProxy(a.opts.Proxy.FullURL(), a.baseURL.Hostname())
	if err != nil {
		return "", noop, err
	}
	addr, err := forwarder.Start(ctx)
	if err != nil {
		return "", noop, err
	}
	a.logger.Debug("Local proxy forwarder started", zap.String("local_addr", addr))

	return addr, func() { forwarder.Stop() }, nil
}

// searchURL returns the aggregator search URL for waybill.
func (a *CekResiAdapter) searchURL(waybill string) string {
	u := *a.baseURL
	q := u.Query()
	q.Set("noresi", waybill)
	u.RawQuery = q.Encode()
	return u.String()
}

// redirectURL fills the waybill into pathTemplate and resolves it against the aggregator.
func (a *CekResiAdapter) redirectURL(pathTemplate, waybill string) (string, error) {
	ref, err := url.Parse(fmt.Sprintf(pathTemplate, url.QueryEscape(waybill)))
	if err != nil {
		return "", fmt.Errorf("invalid redirect template %q: %w", pathTemplate, err)
	}
	return a.baseURL.ResolveReference(ref).String(), nil
}

// waitVisible polls until an element matching selector is visible, for at most timeout.
// Hidden placeholders do not count.
func waitVisible(page *rod.Page, selector string, timeout time.Duration) error {
	p := page.Timeout(timeout)
	defer p.CancelTimeout()
	return p.Wait(rod.Eval(anyVisibleJS, selector))
}

func navigate(page *rod.Page, target string) error {
	if err := page.Navigate(target); err != nil {
		return err
	}
	return page.WaitLoad()
}
