package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablop76/hikashop-fakturownia/internal/config"
	"github.com/pablop76/hikashop-fakturownia/internal/kafka"
	"github.com/pablop76/hikashop-fakturownia/internal/notify"
	"github.com/pablop76/hikashop-fakturownia/internal/store/postgres"
)

type nopWriter struct{}

func (nopWriter) AddHistory(context.Context, postgres.HistoryEntry) error { return nil }

func lookup(env map[string]string) config.Lookup {
	return func(k string) string { return env[k] }
}

func TestNewNotifier(t *testing.T) {
	cfg := config.LoadFrom(lookup(nil))
	n, ok := NewNotifier(cfg, nopWriter{}).(notify.Multi)
	require.True(t, ok)
	assert.Len(t, n, 1)

	cfg = config.LoadFrom(lookup(map[string]string{
		"RESEND_API_KEY": "re_test",
		"ADMIN_EMAIL":    "admin@example.com",
	}))
	n = NewNotifier(cfg, nopWriter{}).(notify.Multi)
	require.Len(t, n, 2)
	assert.IsType(t, &notify.EmailNotifier{}, n[1])
}

func TestPublisher(t *testing.T) {
	a := &App{Config: config.LoadFrom(lookup(nil))}
	pub, err := a.Publisher(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pub)

	a = &App{Config: config.LoadFrom(lookup(map[string]string{"KAFKA_BROKERS": "localhost:9092"}))}
	pub, err = a.Publisher(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &kafka.Producer{}, pub)
	a.Close()
}

func TestNewRequiresDatabase(t *testing.T) {
	_, err := New(context.Background(), config.LoadFrom(lookup(nil)))
	assert.ErrorContains(t, err, "DATABASE_URL")
}
