package service

import (
	"testing"

	"github.com/user/moviebot/internal/messenger/messengertest"
	"github.com/user/moviebot/internal/repository"
)

const testOwner int64 = 1

type fixture struct {
	store      *repository.Store
	fake       *messengertest.Fake
	clock      *manualClock
	ads        *Expirer
	autoDelete *Expirer
	policy     *Policy
	search     *SearchService
	admin      *AdminService
	users      *UserService
}

func newFixture(t *testing.T, cfg SearchConfig) *fixture {
	t.Helper()
	store, err := repository.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	f := &fixture{
		store: store,
		fake:  messengertest.New(),
		clock: newManualClock(),
	}
	f.ads = NewExpirer(f.clock, "ads")
	f.autoDelete = NewExpirer(f.clock, "autodelete")
	f.policy = NewPolicy(store, f.fake, testOwner)
	f.search = NewSearchService(store, f.policy, f.fake, f.ads, f.autoDelete, f.clock, cfg)
	f.admin = NewAdminService(store, f.fake, f.search, nil, f.clock)
	f.users = NewUserService(store, f.fake, testOwner, f.clock)
	t.Cleanup(func() {
		f.ads.Flush()
		f.autoDelete.Stop()
	})
	return f
}
