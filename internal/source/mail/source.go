package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/daily-digest/internal/model"
)

// snippetLimit is the maximum snippet length in runes.
const snippetLimit = 100

// primaryCategory is the category name passed to sessions that support
// categorized search.
const primaryCategory = "primary"

// Source fetches unread messages from a mailbox and normalizes them into
// (subject, snippet) pairs. Each fetch opens, uses, and releases its own
// session; no session outlives a call.
type Source struct {
	dial   Dialer
	logger *slog.Logger
}

// New creates a mail source that dials the configured IMAP server.
func New(cfg model.MailConfig, logger *slog.Logger) *Source {
	return &Source{
		dial:   dialIMAP(cfg),
		logger: logger,
	}
}

// FetchUnread retrieves all unseen messages from the target mailbox.
//
// Connection, authentication, and mailbox-select failures surface as errors.
// A failed search yields Result{Degraded: true} with no items instead of an
// error, and a failed fetch or parse of an individual message skips that
// message. The session's mailbox close and logout run on every exit path.
func (s *Source) FetchUnread(ctx context.Context, opts Options) (Result, error) {
	sess, err := s.dial(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			s.logger.Debug("closing mailbox", "error", closeErr)
		}
		if logoutErr := sess.Logout(); logoutErr != nil {
			s.logger.Debug("logging out", "error", logoutErr)
		}
	}()

	mailbox := opts.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if err := sess.Select(mailbox); err != nil {
		return Result{}, err
	}

	uids, err := searchUnseen(sess, opts.PrimaryOnly)
	if err != nil {
		s.logger.Warn("unseen search failed, returning empty result", "error", err)
		return Result{Degraded: true}, nil
	}

	items := make([]model.EmailItem, 0, len(uids))
	for _, uid := range uids {
		raw, err := sess.FetchRaw(uid)
		if err != nil {
			s.logger.Warn("fetching message, skipping", "uid", uid, "error", err)
			continue
		}

		subject, snippet, err := parseMessage(raw)
		if err != nil {
			s.logger.Warn("parsing message, skipping", "uid", uid, "error", err)
			continue
		}

		items = append(items, model.EmailItem{Subject: subject, Snippet: snippet})

		if opts.MarkAsRead {
			if err := sess.MarkSeen(uid); err != nil {
				s.logger.Warn("marking message seen", "uid", uid, "error", err)
			}
		}
	}

	return Result{Items: items}, nil
}

// searchUnseen runs the unseen search, applying the category filter only when
// the session advertises the capability. An unsupported filter is a no-op,
// not a failure.
func searchUnseen(sess Session, primaryOnly bool) ([]imap.UID, error) {
	if primaryOnly {
		if cs, ok := sess.(CategorySearcher); ok {
			return cs.SearchUnseenCategory(primaryCategory)
		}
	}
	return sess.SearchUnseen()
}

// parseMessage extracts the decoded subject and a body snippet from a raw
// message. The subject decode is best-effort: encoded-word or charset errors
// fall back to whatever could be decoded.
func parseMessage(raw []byte) (subject, snippet string, err error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	// Subject() reports decode errors but still returns the lossily decoded
	// value, which is exactly the fallback we want.
	subject, _ = mr.Header.Subject()

	return subject, extractSnippet(mr), nil
}

// extractSnippet locates the first inline text/plain part (for single-part
// messages this is the sole body), collapses whitespace runs to single
// spaces, trims, and truncates to the snippet limit.
func extractSnippet(mr *mail.Reader) string {
	var body string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			// Attachment part.
			continue
		}

		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		body = string(data)
		break
	}

	collapsed := strings.Join(strings.Fields(body), " ")
	runes := []rune(collapsed)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit])
	}
	return collapsed
}
