package news

import (
	"context"
	"testing"
	"time"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/kv/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Service(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, time.September, 2, 8, 0, 0, 0, time.UTC)
	store := entity.New(inmem.New(), &entity.Options{Now: func() time.Time { return now }})
	defer store.Close()
	svc := NewService(store, nil)

	_, err := svc.Create(ctx, NewArticle{Title: "  ", Body: "x"})
	assert.ErrorIs(err, sms.ErrValidation)

	reopening, err := svc.Create(ctx, NewArticle{Title: "School reopens", Body: "Term 1 begins on Monday."})
	require.NoError(t, err)
	sports, err := svc.Create(ctx, NewArticle{Title: "Inter-house sports", Body: "Friday at the park."})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewArticle{Title: "Draft", Body: "Not yet."})
	require.NoError(t, err)

	assert.False(reopening.Published)

	_, err = svc.Publish(ctx, reopening.ID)
	require.NoError(t, err)
	now = now.Add(time.Hour)
	published, err := svc.Publish(ctx, sports.ID)
	require.NoError(t, err)
	assert.Equal("2024-09-02T09:00:00.000Z", published.PublishedAt)

	now = now.Add(time.Hour)
	again, err := svc.Publish(ctx, sports.ID)
	assert.NoError(err)
	assert.Equal(published.PublishedAt, again.PublishedAt)

	list, err := svc.Published(ctx)
	assert.NoError(err)
	if assert.Len(list, 2) {
		assert.Equal("Inter-house sports", list[0].Title)
		assert.Equal("School reopens", list[1].Title)
	}

	down, err := svc.Unpublish(ctx, sports.ID)
	assert.NoError(err)
	assert.False(down.Published)
	assert.Empty(down.PublishedAt)

	list, err = svc.Published(ctx)
	assert.NoError(err)
	assert.Len(list, 1)

	all, err := svc.All(ctx)
	assert.NoError(err)
	assert.Len(all, 3)

	assert.NoError(svc.Delete(ctx, reopening.ID))
	_, err = svc.Publish(ctx, reopening.ID)
	assert.ErrorIs(err, sms.ErrNotFound)
}
