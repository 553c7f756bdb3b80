package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"options-income-screener/internal/screener/config"
	"options-income-screener/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

// EarningsCalendarRepository resolves the next scheduled earnings date for a
// symbol. Returns nil with no error when no upcoming date is published.
type EarningsCalendarRepository interface {
	GetNextEarningsDate(ctx context.Context, symbol string) (*time.Time, error)
}

// NewEarningsCalendarRepository creates an HTML earnings calendar scraper.
func NewEarningsCalendarRepository(cfg *config.Config, log *logger.Logger) EarningsCalendarRepository {
	return &earningsCalendarRepository{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type earningsCalendarRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
}

var earningsDateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"01/02/2006",
}

// GetNextEarningsDate scrapes the calendar page for a symbol and returns the
// earliest future date found.
func (r *earningsCalendarRepository) GetNextEarningsDate(ctx context.Context, symbol string) (*time.Time, error) {
	url := fmt.Sprintf("%s/calendar/earnings?symbol=%s", r.cfg.EarningsCalendar.BaseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch earnings calendar for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("earnings calendar returned status %d for %s", resp.StatusCode, symbol)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse earnings calendar for %s: %w", symbol, err)
	}

	now := time.Now()
	var next *time.Time
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		ticker := strings.TrimSpace(row.Find("td").Eq(0).Text())
		if !strings.EqualFold(ticker, symbol) {
			return
		}
		dateText := strings.TrimSpace(row.Find("td").Eq(2).Text())
		date, ok := parseEarningsDate(dateText)
		if !ok || date.Before(now) {
			return
		}
		if next == nil || date.Before(*next) {
			next = &date
		}
	})

	if next == nil {
		r.log.DebugContext(ctx, "No upcoming earnings date found", logger.StringField("symbol", symbol))
	}
	return next, nil
}

func parseEarningsDate(text string) (time.Time, bool) {
	for _, layout := range earningsDateLayouts {
		if date, err := time.Parse(layout, text); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}
