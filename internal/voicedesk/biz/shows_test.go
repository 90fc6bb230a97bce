package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/voicedesk/internal/model"
	"github.com/kart-io/voicedesk/internal/voicedesk/store"
	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/validator"
)

func TestShowListDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	svc := NewShowService(store.NewRedisShowStore(f.rdb, ""))

	// miniredis 没有 FT.SEARCH
	shows := svc.List(context.Background(), "hamilton")
	assert.NotNil(t, shows)
	assert.Empty(t, shows)
}

func TestShowSave(t *testing.T) {
	f := newFixture(t)
	svc := NewShowService(store.NewRedisShowStore(f.rdb, ""))
	ctx := context.Background()

	n, err := svc.Save(ctx, []*model.Show{{ID: "wicked", Title: "Wicked", Price: 99, Date: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Wicked", f.mr.HGet("show:wicked", "title"))

	_, err = svc.Save(ctx, nil)
	assert.ErrorIs(t, err, errs.ErrMissingInputs)

	_, err = svc.Save(ctx, []*model.Show{{ID: "x"}})
	var verrs *validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}
