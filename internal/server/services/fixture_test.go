package services

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/dmitrijs2005/rooftop/internal/server/auth"
	"github.com/dmitrijs2005/rooftop/internal/server/config"
	"github.com/dmitrijs2005/rooftop/internal/server/repositories/inmemory"
	"github.com/dmitrijs2005/rooftop/internal/server/shortcode"
	"github.com/dmitrijs2005/rooftop/internal/timex"
)

var t0 = time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

type sentMail struct {
	to         string
	templateID string
	vars       map[string]string
}

type captureNotifier struct {
	mu        sync.Mutex
	sent      []sentMail
	rejectAll bool
	err       error
}

func (n *captureNotifier) Send(_ context.Context, to, templateID string, vars map[string]string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return false, n.err
	}
	n.sent = append(n.sent, sentMail{to: to, templateID: templateID, vars: vars})
	return !n.rejectAll, nil
}

// lastToken extracts the token query parameter from the most recent link
// sent with templateID.
func (n *captureNotifier) lastToken(t *testing.T, templateID, urlVar, param string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].templateID != templateID {
			continue
		}
		u, err := url.Parse(n.sent[i].vars[urlVar])
		if err != nil {
			t.Fatalf("bad link %q: %v", n.sent[i].vars[urlVar], err)
		}
		return u.Query().Get(param)
	}
	t.Fatalf("no %s mail sent", templateID)
	return ""
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) bool { return false }

type fixture struct {
	clock    *timex.ManualClock
	store    *inmemory.Store
	issuer   *auth.Issuer
	mail     *captureNotifier
	sessions *SessionRegistry
	auth     *Authenticator
	users    *UserService
	parties  *PartyService
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.FrontendURL = "http://fe.test/"
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

func newFixtureWith(t *testing.T, limiter Limiter) *fixture {
	t.Helper()

	cfg := testConfig()
	clock := timex.NewManualClock(t0)
	store := inmemory.NewStore(clock)
	storage := Storage{Tx: store, Repos: store}
	log := logging.Nop{}

	f := &fixture{
		clock:  clock,
		store:  store,
		issuer: auth.NewIssuer([]byte("test-secret"), clock),
		mail:   &captureNotifier{},
	}
	hasher := auth.NewBcryptHasher(4)

	f.sessions = NewSessionRegistry(storage, f.issuer, clock, cfg.SessionInactivityWindow, log)
	f.auth = NewAuthenticator(storage, hasher, f.sessions, log)
	f.parties = NewPartyService(storage, shortcode.NewGenerator(0), clock, log)
	f.users = NewUserService(storage, f.issuer, hasher, f.mail, limiter, f.parties, cfg, log)
	return f
}
