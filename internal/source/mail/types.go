package mail

import (
	"context"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/daily-digest/internal/model"
)

// Options controls a single unread-mail fetch.
type Options struct {
	// Mailbox is the mailbox to search. Defaults to "INBOX".
	Mailbox string

	// MarkAsRead flags each message as seen after its subject and snippet
	// have been extracted. The flag is set per message, not batched.
	MarkAsRead bool

	// PrimaryOnly restricts the search to the provider's primary category.
	// Sessions that do not support categorized search ignore it.
	PrimaryOnly bool
}

// Result holds the outcome of an unread-mail fetch. Degraded is set when the
// search command itself failed and an empty result was returned in its place,
// so callers can tell "no matches" apart from "search failed".
type Result struct {
	Items    []model.EmailItem
	Degraded bool
}

// Session is one exclusive IMAP session. Implementations must tolerate Close
// and Logout being called on every exit path, including after errors.
type Session interface {
	// Select opens the named mailbox.
	Select(mailbox string) error

	// SearchUnseen returns the UIDs of all unseen messages.
	SearchUnseen() ([]imap.UID, error)

	// FetchRaw returns the full raw RFC 5322 message for a UID.
	FetchRaw(uid imap.UID) ([]byte, error)

	// MarkSeen adds the \Seen flag to a message.
	MarkSeen(uid imap.UID) error

	// Close closes the selected mailbox.
	Close() error

	// Logout ends the session.
	Logout() error
}

// CategorySearcher is an optional capability for sessions whose server
// supports provider-specific categorized search (e.g. Gmail's primary
// category). Sources branch on the capability, never on provider identity.
type CategorySearcher interface {
	// SearchUnseenCategory returns the UIDs of unseen messages within the
	// given category.
	SearchUnseenCategory(category string) ([]imap.UID, error)
}

// Dialer opens a new authenticated Session.
type Dialer func(ctx context.Context) (Session, error)
