package scraper

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders the page in headless Chrome before returning its
// HTML, for listing pages that build their tiles client-side. It needs a
// Chrome binary on PATH.
type BrowserFetcher struct {
	Timeout   time.Duration
	UserAgent string
	Settle    time.Duration // wait after load for client-side rendering
}

func NewBrowserFetcher(timeout time.Duration, userAgent string) *BrowserFetcher {
	return &BrowserFetcher{Timeout: timeout, UserAgent: userAgent, Settle: 2 * time.Second}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(f.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	bctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelCtx()

	bctx, cancelTimeout := context.WithTimeout(bctx, f.Timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		kind := classify(err)
		if bctx.Err() == context.DeadlineExceeded {
			kind = FetchTimeout
		}
		return nil, &FetchError{Kind: kind, URL: url, Err: err}
	}
	return []byte(html), nil
}
