package credential

import (
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/daily-digest/internal/model"
)

const serviceName = "dailydigest"

// Well-known credential keys.
const (
	KeyMailPassword  = "mail.password"
	KeySMTPPassword  = "smtp.password"
	KeyNewsAPIKey    = "news.api_key"
	KeyWeatherAPIKey = "weather.api_key"
)

// openRing is swappable so tests can substitute an in-memory keyring.
var openRing = openKeyring

// KnownKey reports whether key names one of the digest's secrets.
func KnownKey(key string) bool {
	switch key {
	case KeyMailPassword, KeySMTPPassword, KeyNewsAPIKey, KeyWeatherAPIKey:
		return true
	}
	return false
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/dailydigest/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("dailydigest-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openRing()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openRing()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openRing()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// FillConfig resolves secrets the config file left empty from the system
// keyring. A missing keyring entry is not an error; the component using the
// secret reports the missing configuration at the point of use.
func FillConfig(cfg *model.AppConfig) {
	fill := func(target *string, key string) {
		if *target != "" {
			return
		}
		if value, err := Get(key); err == nil && value != "" {
			*target = value
		}
	}

	fill(&cfg.Mail.Password, KeyMailPassword)
	fill(&cfg.SMTP.Password, KeySMTPPassword)
	fill(&cfg.News.APIKey, KeyNewsAPIKey)
	fill(&cfg.Weather.APIKey, KeyWeatherAPIKey)
}
