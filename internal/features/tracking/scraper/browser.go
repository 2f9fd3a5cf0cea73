package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
)

// renderDelay gives carrier pages time to render tracking tables with
// javascript after the initial document load.
const renderDelay = 2500 * time.Millisecond

// RodSource produces raw page text with a headless browser. It implements
// ports.PageTextSource for carriers without a structured API.
type RodSource struct {
	logger *zap.Logger
}

// NewRodSource creates a RodSource.
func NewRodSource() *RodSource {
	return &RodSource{
		logger: logger.Get(),
	}
}

// PageText navigates to url and returns the rendered body innerText.
func (s *RodSource) PageText(ctx context.Context, url string) (string, error) {
	s.logger.Debug("Launching browser for scrape", zap.String("url", url))

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}

	// Let client-side rendering settle before reading the DOM.
	select {
	case <-time.After(renderDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	result, err := page.Eval("() => document.body.innerText")
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}

	return result.Value.Str(), nil
}
