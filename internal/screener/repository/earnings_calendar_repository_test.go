package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"options-income-screener/internal/screener/config"
	"options-income-screener/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarRepo(t *testing.T, baseURL string) EarningsCalendarRepository {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.EarningsCalendar.BaseURL = baseURL
	return NewEarningsCalendarRepository(cfg, log)
}

func calendarPage(rows string) string {
	return fmt.Sprintf(`<html><body><table><tbody>%s</tbody></table></body></html>`, rows)
}

func calendarRow(ticker, company, date string) string {
	return fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td>%s</td></tr>`, ticker, company, date)
}

func TestGetNextEarningsDatePicksEarliestFuture(t *testing.T) {
	far := time.Now().AddDate(0, 0, 45)
	near := time.Now().AddDate(0, 0, 12)
	past := time.Now().AddDate(0, 0, -30)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, calendarPage(
			calendarRow("AAPL", "Apple Inc", past.Format("Jan 2, 2006"))+
				calendarRow("AAPL", "Apple Inc", far.Format("Jan 2, 2006"))+
				calendarRow("MSFT", "Microsoft", time.Now().AddDate(0, 0, 3).Format("Jan 2, 2006"))+
				calendarRow("AAPL", "Apple Inc", near.Format("Jan 2, 2006")),
		))
	}))
	defer server.Close()

	got, err := calendarRepo(t, server.URL).GetNextEarningsDate(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, near.Format("2006-01-02"), got.Format("2006-01-02"))
}

func TestGetNextEarningsDateNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, calendarPage(calendarRow("MSFT", "Microsoft", "Jan 2, 2030")))
	}))
	defer server.Close()

	got, err := calendarRepo(t, server.URL).GetNextEarningsDate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetNextEarningsDateNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	got, err := calendarRepo(t, server.URL).GetNextEarningsDate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetNextEarningsDateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := calendarRepo(t, server.URL).GetNextEarningsDate(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestParseEarningsDate(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Jan 2, 2026", "2026-01-02", true},
		{"January 2, 2026", "2026-01-02", true},
		{"2026-01-02", "2026-01-02", true},
		{"01/02/2026", "2026-01-02", true},
		{"soon", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := parseEarningsDate(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		if tc.ok {
			assert.Equal(t, tc.want, got.Format("2006-01-02"), tc.text)
		}
	}
}
