package whoop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tyemirov/lifecrm/internal/store"
)

var testConfig = Config{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	RedirectURI:  "https://life.example.com/api/whoop/callback",
}

type fakeExchanger struct {
	mutex        sync.Mutex
	refreshCalls int
	codeCalls    int
	grant        TokenGrant
	err          error
}

func (exchanger *fakeExchanger) ExchangeAuthorizationCode(ctx context.Context, code string) (TokenGrant, error) {
	exchanger.mutex.Lock()
	defer exchanger.mutex.Unlock()
	exchanger.codeCalls++
	return exchanger.grant, exchanger.err
}

func (exchanger *fakeExchanger) ExchangeRefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error) {
	exchanger.mutex.Lock()
	defer exchanger.mutex.Unlock()
	exchanger.refreshCalls++
	return exchanger.grant, exchanger.err
}

type fakeAuthorizer struct {
	lastState string
}

func (authorizer *fakeAuthorizer) AuthorizationURL(state string) string {
	authorizer.lastState = state
	return "https://whoop.example.com/auth?state=" + state
}

type fakeFetcher struct {
	cycles    any
	cyclesErr error
	sleep     any
	sleepErr  error

	mutex sync.Mutex
	calls []fetchCall
}

type fetchCall struct {
	resource    string
	accessToken string
	start       time.Time
	end         time.Time
	limit       int
}

func (fetcher *fakeFetcher) record(resource string, accessToken string, start time.Time, end time.Time, limit int) {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()
	fetcher.calls = append(fetcher.calls, fetchCall{resource: resource, accessToken: accessToken, start: start, end: end, limit: limit})
}

func (fetcher *fakeFetcher) FetchCycles(ctx context.Context, accessToken string, start time.Time, end time.Time, limit int) (any, error) {
	fetcher.record(cyclesResource, accessToken, start, end, limit)
	return fetcher.cycles, fetcher.cyclesErr
}

func (fetcher *fakeFetcher) FetchSleep(ctx context.Context, accessToken string, start time.Time, end time.Time, limit int) (any, error) {
	fetcher.record(sleepResource, accessToken, start, end, limit)
	return fetcher.sleep, fetcher.sleepErr
}

type staticTokens struct {
	credential store.Credential
	err        error
}

func (tokens staticTokens) EnsureValidToken(ctx context.Context) (store.Credential, error) {
	return tokens.credential, tokens.err
}

type failingWriter struct{}

func (failingWriter) UpsertDailyRecord(ctx context.Context, record store.DailyRecord) error {
	return errors.New("disk full")
}

func fixedClock(instant time.Time) func() time.Time {
	return func() time.Time { return instant }
}
