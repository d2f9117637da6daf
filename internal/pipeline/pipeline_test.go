package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-digest/internal/digest"
	"github.com/nhle/daily-digest/internal/model"
	"github.com/nhle/daily-digest/internal/source"
	mailsource "github.com/nhle/daily-digest/internal/source/mail"
	"github.com/nhle/daily-digest/internal/source/news"
	"github.com/nhle/daily-digest/internal/store"
)

type fakeMail struct {
	result mailsource.Result
	err    error
	opts   mailsource.Options
}

func (f *fakeMail) FetchUnread(_ context.Context, opts mailsource.Options) (mailsource.Result, error) {
	f.opts = opts
	return f.result, f.err
}

type fakeNews struct {
	headlines []model.Headline
	err       error
	query     news.Query
}

func (f *fakeNews) TopHeadlines(_ context.Context, q news.Query) ([]model.Headline, error) {
	f.query = q
	return f.headlines, f.err
}

type fakeWeather struct {
	summary  *model.WeatherSummary
	err      error
	location string
}

func (f *fakeWeather) DailyWeather(_ context.Context, location string) (*model.WeatherSummary, error) {
	f.location = location
	return f.summary, f.err
}

type fakeDispatcher struct {
	items     []string
	weather   string
	headlines []string
	err       error
	calls     int
}

func (f *fakeDispatcher) SendSummary(items []string, weather string, headlines []string) (model.DigestDocument, error) {
	f.calls++
	f.items = items
	f.weather = weather
	f.headlines = headlines
	if f.err != nil {
		return model.DigestDocument{}, f.err
	}
	return digest.BuildBody(items, weather, headlines)
}

type fakeStore struct {
	runs []model.RunRecord
	err  error
}

func (f *fakeStore) RecordRun(_ context.Context, run model.RunRecord) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) GetRuns(context.Context, store.RunFilter) ([]model.RunRecord, error) {
	return f.runs, nil
}

func (f *fakeStore) GetRunByID(context.Context, string) (*model.RunRecord, error) {
	return nil, nil
}

func (f *fakeStore) LastSentRun(context.Context) (*model.RunRecord, error) {
	return nil, nil
}

func testConfig() *model.AppConfig {
	return &model.AppConfig{
		Mail: model.MailConfig{
			Mailbox:    "INBOX",
			MarkAsRead: true,
		},
		News: model.NewsConfig{
			Category: "technology",
			Limit:    5,
		},
		Weather: model.WeatherConfig{
			Location: "Hanoi",
		},
	}
}

func newTestPipeline(
	mail *fakeMail,
	newsSource *fakeNews,
	weather *fakeWeather,
	dispatcher *fakeDispatcher,
	st *fakeStore,
) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(mail, newsSource, weather, dispatcher, st, testConfig(), logger)
}

func TestRunComposesAndDispatchesDigest(t *testing.T) {
	longSnippet := strings.Repeat("a", 100)
	mail := &fakeMail{result: mailsource.Result{Items: []model.EmailItem{
		{Subject: "Invoice #1", Snippet: "Please pay by Friday"},
		{Subject: "Re: lunch", Snippet: longSnippet},
	}}}
	newsSource := &fakeNews{headlines: []model.Headline{
		{Title: "Go 1.25 released", URL: "https://example.com/go"},
		{Title: "New datacenter opens", URL: "https://example.com/dc"},
		{Title: "Chip shortage eases", URL: "https://example.com/chips"},
		{Title: "Browser ships update", URL: "https://example.com/browser"},
		{Title: "Satellite launch delayed", URL: "https://example.com/sat"},
	}}
	weather := &fakeWeather{summary: &model.WeatherSummary{
		Temperature:  11.0,
		Condition:    "clear sky",
		ChanceOfRain: 0.3,
	}}
	dispatcher := &fakeDispatcher{}
	st := &fakeStore{}

	run, err := newTestPipeline(mail, newsSource, weather, dispatcher, st).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, []string{
		"Invoice #1: Please pay by Friday",
		"Re: lunch: " + longSnippet,
	}, dispatcher.items)
	assert.Equal(t, "11.0°C, clear sky, 30% chance of rain", dispatcher.weather)
	assert.Len(t, dispatcher.headlines, 5)
	assert.Equal(t, "Go 1.25 released (https://example.com/go)", dispatcher.headlines[0])

	assert.Equal(t, model.RunStatusSent, run.Status)
	assert.Equal(t, 2, run.MailCount)
	assert.Equal(t, 5, run.HeadlineCount)
	assert.Contains(t, run.TextBody, "- Invoice #1: Please pay by Friday")
	assert.Contains(t, run.TextBody, longSnippet)
	assert.NotContains(t, run.TextBody, strings.Repeat("a", 101))
	assert.Contains(t, run.HTMLBody, "<h1>Daily Summary</h1>")

	require.Len(t, st.runs, 1)
	assert.Equal(t, run.ID, st.runs[0].ID)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRunForwardsConfiguredOptions(t *testing.T) {
	mail := &fakeMail{}
	newsSource := &fakeNews{headlines: []model.Headline{{Title: "t", URL: "u"}}}
	weather := &fakeWeather{}
	dispatcher := &fakeDispatcher{}

	_, err := newTestPipeline(mail, newsSource, weather, dispatcher, &fakeStore{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, mailsource.Options{Mailbox: "INBOX", MarkAsRead: true}, mail.opts)
	assert.Equal(t, news.Query{Category: "technology", Limit: 5}, newsSource.query)
	assert.Equal(t, "Hanoi", weather.location)
}

func TestRunSourceFailureAbortsBeforeDispatch(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*fakeMail, *fakeNews, *fakeWeather)
	}{
		{"mail", func(m *fakeMail, _ *fakeNews, _ *fakeWeather) {
			m.err = errors.New("login failed")
		}},
		{"news", func(_ *fakeMail, n *fakeNews, _ *fakeWeather) {
			n.err = errors.New("status 500")
		}},
		{"weather", func(_ *fakeMail, _ *fakeNews, w *fakeWeather) {
			w.err = errors.New("connection refused")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mail := &fakeMail{}
			newsSource := &fakeNews{}
			weather := &fakeWeather{}
			tc.setup(mail, newsSource, weather)
			dispatcher := &fakeDispatcher{}
			st := &fakeStore{}

			run, err := newTestPipeline(mail, newsSource, weather, dispatcher, st).Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.name+" source")

			assert.Zero(t, dispatcher.calls)
			require.NotNil(t, run)
			assert.Equal(t, model.RunStatusFailed, run.Status)
			assert.NotEmpty(t, run.Error)
			require.Len(t, st.runs, 1)
			assert.Equal(t, model.RunStatusFailed, st.runs[0].Status)
		})
	}
}

func TestRunAuthFailureFlaggedDistinctly(t *testing.T) {
	mail := &fakeMail{err: &source.AuthError{
		SourceType: source.SourceTypeMail,
		Message:    "authentication failed for me@example.com",
	}}
	dispatcher := &fakeDispatcher{}
	st := &fakeStore{}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := New(mail, &fakeNews{}, &fakeWeather{}, dispatcher, st, testConfig(), logger)

	run, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))

	assert.Contains(t, buf.String(), "authentication failed")
	assert.Zero(t, dispatcher.calls)
	assert.Equal(t, model.RunStatusFailed, run.Status)
}

func TestRunMissingForecastUsesFallback(t *testing.T) {
	newsSource := &fakeNews{headlines: []model.Headline{{Title: "t", URL: "u"}}}
	dispatcher := &fakeDispatcher{}

	run, err := newTestPipeline(&fakeMail{}, newsSource, &fakeWeather{}, dispatcher, &fakeStore{}).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "No forecast data available.", dispatcher.weather)
	assert.Equal(t, "No forecast data available.", run.WeatherText)
	assert.Equal(t, model.RunStatusSent, run.Status)
}

func TestRunDegradedMailStillSends(t *testing.T) {
	mail := &fakeMail{result: mailsource.Result{Degraded: true}}
	newsSource := &fakeNews{headlines: []model.Headline{{Title: "t", URL: "u"}}}
	dispatcher := &fakeDispatcher{}

	run, err := newTestPipeline(mail, newsSource, &fakeWeather{}, dispatcher, &fakeStore{}).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, dispatcher.calls)
	assert.Empty(t, dispatcher.items)
	assert.Equal(t, model.RunStatusSent, run.Status)
	assert.Zero(t, run.MailCount)
}

func TestRunDispatchFailureRecordsFailedRun(t *testing.T) {
	newsSource := &fakeNews{headlines: []model.Headline{{Title: "t", URL: "u"}}}
	dispatcher := &fakeDispatcher{err: errors.New("smtp: 535 authentication failed")}
	st := &fakeStore{}

	run, err := newTestPipeline(&fakeMail{}, newsSource, &fakeWeather{}, dispatcher, st).
		Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatching digest")

	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.Len(t, st.runs, 1)
	assert.Equal(t, model.RunStatusFailed, st.runs[0].Status)
}

func TestRunStoreFailureDoesNotFailRun(t *testing.T) {
	newsSource := &fakeNews{headlines: []model.Headline{{Title: "t", URL: "u"}}}
	dispatcher := &fakeDispatcher{}
	st := &fakeStore{err: errors.New("database is locked")}

	run, err := newTestPipeline(&fakeMail{}, newsSource, &fakeWeather{}, dispatcher, st).
		Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSent, run.Status)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestRunItemWithoutSnippetOmitsSeparator(t *testing.T) {
	mail := &fakeMail{result: mailsource.Result{Items: []model.EmailItem{
		{Subject: "No body here"},
	}}}
	newsSource := &fakeNews{headlines: []model.Headline{{Title: "t", URL: "u"}}}
	dispatcher := &fakeDispatcher{}

	_, err := newTestPipeline(mail, newsSource, &fakeWeather{}, dispatcher, &fakeStore{}).
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, dispatcher.items, 1)
	assert.Equal(t, "No body here", dispatcher.items[0])
}
