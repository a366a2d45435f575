package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		require.FailNow(t, "no event received")
	}
	return Event{}
}

func TestPublishToAllSubscribers(t *testing.T) {
	hub := NewHub()
	first, unsubscribeFirst := hub.Subscribe()
	defer unsubscribeFirst()
	second, unsubscribeSecond := hub.Subscribe()
	defer unsubscribeSecond()

	hub.Toast(Toast{Level: LevelError, Message: "boom", Kind: "ServerFault"})

	for _, ch := range []<-chan Event{first, second} {
		event := receive(t, ch)
		assert.Equal(t, EventToast, event.Type)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Time.IsZero())
		require.NotNil(t, event.Toast)
		assert.Equal(t, "boom", event.Toast.Message)
		assert.Nil(t, event.Logout)
	}
}

func TestLogoutEvent(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Logout(LogoutReasonRefreshFailed)

	event := receive(t, ch)
	assert.Equal(t, EventLogout, event.Type)
	require.NotNil(t, event.Logout)
	assert.Equal(t, LogoutReasonRefreshFailed, event.Logout.Reason)
}

func TestPublishDoesNotBlock(t *testing.T) {
	hub := NewHub(WithBufferSize(1))
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		hub.Toast(Toast{Message: "one"})
		hub.Toast(Toast{Message: "two"})
		hub.Toast(Toast{Message: "three"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "publishing blocked on a slow subscriber")
	}
	event := receive(t, ch)
	assert.Equal(t, "one", event.Toast.Message)
	assert.Len(t, ch, 0)
}

func TestLogoutIsDeliveredToSlowSubscriber(t *testing.T) {
	hub := NewHub(WithBufferSize(2))
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Toast(Toast{Level: LevelError, Message: "connection lost"})
		}
		hub.Logout(LogoutReasonSessionExpired)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "publishing blocked on a slow subscriber")
	}
	first := receive(t, ch)
	assert.Equal(t, EventToast, first.Type)
	last := receive(t, ch)
	assert.Equal(t, EventLogout, last.Type)
	require.NotNil(t, last.Logout)
	assert.Equal(t, LogoutReasonSessionExpired, last.Logout.Reason)
	assert.Len(t, ch, 0)
}

func TestZeroBufferSizeIsRaised(t *testing.T) {
	hub := NewHub(WithBufferSize(0))
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	hub.Logout(LogoutReasonUser)

	event := receive(t, ch)
	assert.Equal(t, EventLogout, event.Type)
}

func TestUnsubscribe(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.Subscribe()

	unsubscribe()
	unsubscribe()
	hub.Logout("ignored")

	_, open := <-ch
	assert.False(t, open)
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	assert.NotEmpty(t, catalog.SessionExpired)
	assert.NotEmpty(t, catalog.NoPermission)
	assert.NotEmpty(t, catalog.NotFound)
	assert.NotEmpty(t, catalog.ValidationFailed)
	assert.NotEmpty(t, catalog.BadRequest)
	assert.NotEmpty(t, catalog.SystemError)
	assert.NotEmpty(t, catalog.ConnectionTimeout)
	assert.NotEmpty(t, catalog.ConnectionLost)
	assert.NotEmpty(t, catalog.Unexpected)
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("systemError: Le système est en panne\n"), 0o600))

	catalog, err := LoadCatalog(path)

	require.NoError(t, err)
	assert.Equal(t, "Le système est en panne", catalog.SystemError)
	assert.Equal(t, DefaultCatalog().SessionExpired, catalog.SessionExpired)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}
