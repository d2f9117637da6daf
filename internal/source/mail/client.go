package mail

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	_ "github.com/emersion/go-message/charset"

	"github.com/nhle/daily-digest/internal/model"
	"github.com/nhle/daily-digest/internal/source"
)

// imapSession implements Session on top of go-imap v2. It does not implement
// CategorySearcher: go-imap exposes no raw search extensions, so the
// primary-category filter degrades to a plain unseen search.
type imapSession struct {
	client *imapclient.Client
}

// dialIMAP connects to the configured IMAP server over TLS, authenticates,
// and returns the live session. Authentication failures are reported as
// source.AuthError; the connection is torn down before returning them.
func dialIMAP(cfg model.MailConfig) Dialer {
	return func(_ context.Context) (Session, error) {
		addr := cfg.Host + ":" + cfg.Port

		client, err := imapclient.DialTLS(addr, nil)
		if err != nil {
			return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
		}

		if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
			_ = client.Logout().Wait()
			return nil, &source.AuthError{
				SourceType: source.SourceTypeMail,
				Message: fmt.Sprintf(
					"authentication failed for %s: %v",
					cfg.Username, err,
				),
			}
		}

		return &imapSession{client: client}, nil
	}
}

func (s *imapSession) Select(mailbox string) error {
	if _, err := s.client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}
	return nil
}

func (s *imapSession) SearchUnseen() ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	return searchData.AllUIDs(), nil
}

func (s *imapSession) FetchRaw(uid imap.UID) ([]byte, error) {
	// Peek so fetching alone never flips the \Seen flag; marking read is an
	// explicit, separate step.
	bodySection := &imap.FetchItemBodySection{Peek: true}

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), fetchOpts)

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("message UID %d has no body section", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return raw, fmt.Errorf("closing fetch: %w", err)
	}

	return raw, nil
}

func (s *imapSession) MarkSeen(uid imap.UID) error {
	storeCmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	return storeCmd.Close()
}

func (s *imapSession) Close() error {
	return s.client.Unselect().Wait()
}

func (s *imapSession) Logout() error {
	return s.client.Logout().Wait()
}
