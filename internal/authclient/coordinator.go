package authclient

import (
	"context"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RefreshFunc calls the refresh endpoint once and returns the new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// TokenFunc returns the access token currently stored.
type TokenFunc func(ctx context.Context) (string, error)

type refreshResult struct {
	token string
	err   error
}

type waiter struct {
	result chan refreshResult
	done   chan struct{}
	once   sync.Once
}

func newWaiter() *waiter {
	return &waiter{result: make(chan refreshResult, 1), done: make(chan struct{})}
}

func (w *waiter) finish() {
	w.once.Do(func() { close(w.done) })
}

// Grant carries the access token to resend a request with. Release must be called right before
// the request is resent, the next queued request is only handed its token after that.
type Grant struct {
	Token string
	// Queued is true when the request waited behind a refresh started by another request.
	Queued  bool
	release func()
	once    sync.Once
}

func (g *Grant) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		if g.release != nil {
			g.release()
		}
	})
}

// RefreshCoordinator makes sure that at most one refresh call is outstanding. Requests that
// need a new token while a refresh is in flight wait in a queue that is drained in arrival
// order once the refresh settles.
type RefreshCoordinator struct {
	lock       sync.Mutex
	inFlight   bool
	nextTicket uint64
	pending    *orderedmap.OrderedMap[uint64, *waiter]
	refresh    RefreshFunc
	current    TokenFunc
}

func NewRefreshCoordinator(refresh RefreshFunc, current TokenFunc) *RefreshCoordinator {
	return &RefreshCoordinator{
		pending: orderedmap.New[uint64, *waiter](),
		refresh: refresh,
		current: current,
	}
}

func (rc *RefreshCoordinator) InFlight() bool {
	rc.lock.Lock()
	defer rc.lock.Unlock()
	return rc.inFlight
}

// Pending is the number of requests waiting on the refresh in flight.
func (rc *RefreshCoordinator) Pending() int {
	rc.lock.Lock()
	defer rc.lock.Unlock()
	return rc.pending.Len()
}

// Acquire returns a token to retry a request that was rejected while carrying failedToken.
// When no refresh is in flight and the stored token already differs from failedToken, the
// stored token is returned without refreshing.
func (rc *RefreshCoordinator) Acquire(ctx context.Context, failedToken string) (*Grant, error) {
	return rc.acquire(ctx, failedToken, false)
}

// Refresh starts a refresh or joins the one in flight.
func (rc *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	grant, err := rc.acquire(ctx, "", true)
	if err != nil {
		return "", err
	}
	grant.Release()
	return grant.Token, nil
}

func (rc *RefreshCoordinator) acquire(ctx context.Context, failedToken string, force bool) (*Grant, error) {
	rc.lock.Lock()
	if rc.inFlight {
		ticket := rc.nextTicket
		rc.nextTicket++
		w := newWaiter()
		rc.pending.Set(ticket, w)
		rc.lock.Unlock()
		return rc.wait(ctx, ticket, w)
	}
	if !force {
		current, err := rc.current(ctx)
		if err == nil && current != "" && current != failedToken {
			rc.lock.Unlock()
			return &Grant{Token: current}, nil
		}
	}
	rc.inFlight = true
	rc.lock.Unlock()

	token, err := rc.refresh(ctx)

	rc.lock.Lock()
	waiters := rc.pending
	rc.pending = orderedmap.New[uint64, *waiter]()
	rc.inFlight = false
	rc.lock.Unlock()

	result := refreshResult{token: token, err: err}
	if err != nil {
		for pair := waiters.Oldest(); pair != nil; pair = pair.Next() {
			pair.Value.result <- result
		}
		return nil, err
	}
	return &Grant{Token: token, release: func() { go drain(waiters, result) }}, nil
}

func (rc *RefreshCoordinator) wait(ctx context.Context, ticket uint64, w *waiter) (*Grant, error) {
	select {
	case res := <-w.result:
		if res.err != nil {
			w.finish()
			return nil, res.err
		}
		return &Grant{Token: res.token, Queued: true, release: w.finish}, nil
	case <-ctx.Done():
		rc.lock.Lock()
		rc.pending.Delete(ticket)
		rc.lock.Unlock()
		w.finish()
		return nil, ctx.Err()
	}
}

// drain hands the new token to the queued requests one at a time, the next one gets it
// when the previous one resent its request or gave up waiting.
func drain(waiters *orderedmap.OrderedMap[uint64, *waiter], result refreshResult) {
	for pair := waiters.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.result <- result
		<-pair.Value.done
	}
}
