// Package authstate holds the operator signed in to the dashboard and reacts to the
// logout signal.
package authstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/models"
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/notify"
)

type Subscriber interface {
	Subscribe() (<-chan notify.Event, func())
}

type Holder struct {
	lock          sync.RWMutex
	user          *models.User
	loginLocation string
}

func (h *Holder) SetUser(user *models.User) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.user = user
}

// User returns a copy of the signed in user.
func (h *Holder) User() (models.User, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if h.user == nil {
		return models.User{}, false
	}
	return *h.user, true
}

func (h *Holder) Clear() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.user = nil
}

// LoginLocation is where the dashboard is sent after a logout.
func (h *Holder) LoginLocation() string {
	return h.loginLocation
}

// Handle applies an event and returns the location to redirect to when the event signs the user out.
func (h *Holder) Handle(event notify.Event) (string, bool) {
	if event.Type != notify.EventLogout {
		return "", false
	}
	h.Clear()
	reason := ""
	if event.Logout != nil {
		reason = event.Logout.Reason
	}
	slog.Info("AUTH STATE", "message", "user signed out", "reason", reason)
	return h.loginLocation, true
}

// Listen handles the events of the subscriber until the context is done.
func (h *Holder) Listen(ctx context.Context, subscriber Subscriber) {
	events, unsubscribe := subscriber.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.Handle(event)
		}
	}
}

type HolderOption func(*Holder)

func WithLoginLocation(location string) HolderOption {
	return func(h *Holder) {
		h.loginLocation = location
	}
}

func NewHolder(options ...HolderOption) *Holder {
	holder := Holder{loginLocation: "/login"}
	for _, opt := range options {
		opt(&holder)
	}
	return &holder
}
