package views

import (
	"context"
	"sort"
	"sync"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/models"
)

var errMissing = apperrors.New(apperrors.CodeNotFound, "record not found")

type fakeDirectory struct {
	mu       sync.Mutex
	users    map[string]models.User
	failures int
	calls    int
}

func newFakeDirectory(users ...models.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]models.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) fail() error {
	d.calls++
	if d.failures > 0 {
		d.failures--
		return apperrors.Dependency(context.DeadlineExceeded, "database unavailable")
	}
	return nil
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail(); err != nil {
		return models.User{}, err
	}
	u, ok := d.users[id]
	if !ok {
		return models.User{}, errMissing
	}
	return u, nil
}

func (d *fakeDirectory) FindProfiles(_ context.Context, ids []string) (map[string]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail(); err != nil {
		return nil, err
	}
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (d *fakeDirectory) delete(id string) {
	d.mu.Lock()
	delete(d.users, id)
	d.mu.Unlock()
}

type fakeCatalog struct {
	videos  map[string]models.Video
	content map[string]models.ChannelContent
	listErr error
}

func newFakeCatalog(videos ...models.Video) *fakeCatalog {
	c := &fakeCatalog{videos: make(map[string]models.Video), content: make(map[string]models.ChannelContent)}
	for _, v := range videos {
		c.videos[v.ID] = v
	}
	return c
}

func (c *fakeCatalog) FindByIDs(_ context.Context, ids []string) (map[string]models.Video, error) {
	out := make(map[string]models.Video, len(ids))
	for _, id := range ids {
		if v, ok := c.videos[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (c *fakeCatalog) ListByOwner(_ context.Context, ownerID string) ([]models.Video, error) {
	if c.listErr != nil {
		err := c.listErr
		c.listErr = nil
		return nil, err
	}
	out := make([]models.Video, 0)
	for _, v := range c.videos {
		if v.OwnerID == ownerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *fakeCatalog) ChannelContent(_ context.Context, channelID string) (models.ChannelContent, error) {
	return c.content[channelID], nil
}

type fakeWatchLog struct {
	entries []models.WatchEntry
}

func (w *fakeWatchLog) WatchEntries(_ context.Context, viewerID string) ([]models.WatchEntry, error) {
	var out []models.WatchEntry
	for _, e := range w.entries {
		if e.ViewerID == viewerID {
			out = append(out, e)
		}
	}
	return out, nil
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (string, error) {
	return "", apperrors.Dependency(context.DeadlineExceeded, "object store unavailable")
}

type prefixResolver struct{ prefix string }

func (r prefixResolver) Resolve(_ context.Context, ref string) (string, error) {
	return r.prefix + ref, nil
}
