package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/daily-digest/internal/model"
	"github.com/nhle/daily-digest/internal/source"
	mailsource "github.com/nhle/daily-digest/internal/source/mail"
	"github.com/nhle/daily-digest/internal/source/news"
	"github.com/nhle/daily-digest/internal/store"
)

// MailSource fetches unread messages.
type MailSource interface {
	FetchUnread(ctx context.Context, opts mailsource.Options) (mailsource.Result, error)
}

// NewsSource fetches top headlines.
type NewsSource interface {
	TopHeadlines(ctx context.Context, q news.Query) ([]model.Headline, error)
}

// WeatherSource fetches the daily weather summary.
type WeatherSource interface {
	DailyWeather(ctx context.Context, location string) (*model.WeatherSummary, error)
}

// Dispatcher composes and delivers a digest, returning the document it sent.
type Dispatcher interface {
	SendSummary(items []string, weather string, headlines []string) (model.DigestDocument, error)
}

// weatherFallback stands in for the weather section when the forecast API
// returned no usable samples.
const weatherFallback = "No forecast data available."

// Pipeline sequences the three sources, the composer, and the dispatcher for
// one digest run, and records every outcome in the store.
type Pipeline struct {
	mail       MailSource
	news       NewsSource
	weather    WeatherSource
	dispatcher Dispatcher
	store      store.Store
	cfg        *model.AppConfig
	logger     *slog.Logger
}

// New assembles a pipeline from its collaborators.
func New(
	mail MailSource,
	newsSource NewsSource,
	weather WeatherSource,
	dispatcher Dispatcher,
	st store.Store,
	cfg *model.AppConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		mail:       mail,
		news:       newsSource,
		weather:    weather,
		dispatcher: dispatcher,
		store:      st,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one digest pass: the three sources are queried concurrently
// (they share no state and no session), their normalized outputs are composed
// once all have resolved, and the result is dispatched.
//
// Any hard source failure — authentication, transport, configuration, caller
// error — aborts the run before dispatch; no partial digest is ever sent.
// Degraded results (empty mailbox, degraded mail search, no forecast samples)
// still produce a digest with empty or fallback sections.
func (p *Pipeline) Run(ctx context.Context) (*model.RunRecord, error) {
	startedAt := time.Now()

	var (
		wg sync.WaitGroup

		mailResult mailsource.Result
		mailErr    error

		headlines []model.Headline
		newsErr   error

		weather    *model.WeatherSummary
		weatherErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		mailResult, mailErr = p.mail.FetchUnread(ctx, mailsource.Options{
			Mailbox:     p.cfg.Mail.Mailbox,
			MarkAsRead:  p.cfg.Mail.MarkAsRead,
			PrimaryOnly: p.cfg.Mail.PrimaryOnly,
		})
	}()
	go func() {
		defer wg.Done()
		headlines, newsErr = p.news.TopHeadlines(ctx, news.Query{
			Keywords: p.cfg.News.Keywords,
			Category: p.cfg.News.Category,
			Limit:    p.cfg.News.Limit,
		})
	}()
	go func() {
		defer wg.Done()
		weather, weatherErr = p.weather.DailyWeather(ctx, p.cfg.Weather.Location)
	}()
	wg.Wait()

	for _, sourceErr := range []struct {
		name string
		err  error
	}{
		{"mail", mailErr},
		{"news", newsErr},
		{"weather", weatherErr},
	} {
		if sourceErr.err == nil {
			continue
		}
		if source.IsAuthError(sourceErr.err) {
			p.logger.Error("source authentication failed, check credentials",
				"source", sourceErr.name, "error", sourceErr.err)
		} else {
			p.logger.Error("source failed, aborting run",
				"source", sourceErr.name, "error", sourceErr.err)
		}
		err := fmt.Errorf("%s source: %w", sourceErr.name, sourceErr.err)
		return p.recordFailure(ctx, startedAt, err), err
	}

	if mailResult.Degraded {
		p.logger.Warn("mail search degraded, digest will have no mail items")
	}

	items := formatItems(mailResult.Items)
	headlineLines := formatHeadlines(headlines)
	weatherText := weatherFallback
	if weather != nil {
		weatherText = weather.String()
	}

	doc, err := p.dispatcher.SendSummary(items, weatherText, headlineLines)
	if err != nil {
		return p.recordFailure(ctx, startedAt, err), fmt.Errorf("dispatching digest: %w", err)
	}

	run := model.RunRecord{
		ID:            uuid.NewString(),
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Status:        model.RunStatusSent,
		MailCount:     len(mailResult.Items),
		HeadlineCount: len(headlines),
		WeatherText:   weatherText,
		TextBody:      doc.Text,
		HTMLBody:      doc.HTML,
	}
	p.record(ctx, run)

	p.logger.Info("digest sent",
		"mail_items", run.MailCount,
		"headlines", run.HeadlineCount,
		"weather", weatherText,
	)

	return &run, nil
}

func (p *Pipeline) recordFailure(ctx context.Context, startedAt time.Time, cause error) *model.RunRecord {
	run := model.RunRecord{
		ID:         uuid.NewString(),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Status:     model.RunStatusFailed,
		Error:      cause.Error(),
	}
	p.record(ctx, run)
	return &run
}

// record persists a run outcome. Failing to record never fails the run.
func (p *Pipeline) record(ctx context.Context, run model.RunRecord) {
	if p.store == nil {
		return
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		p.logger.Error("recording run", "run_id", run.ID, "error", err)
	}
}

// formatItems renders each email item as "Subject: snippet", dropping the
// separator when there is no snippet.
func formatItems(items []model.EmailItem) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item.Snippet == "" {
			lines = append(lines, item.Subject)
			continue
		}
		lines = append(lines, item.Subject+": "+item.Snippet)
	}
	return lines
}

// formatHeadlines renders each headline as "Title (url)".
func formatHeadlines(headlines []model.Headline) []string {
	lines := make([]string, 0, len(headlines))
	for _, h := range headlines {
		lines = append(lines, fmt.Sprintf("%s (%s)", h.Title, h.URL))
	}
	return lines
}
