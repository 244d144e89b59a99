package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
)

func TestUserRepository_UpsertAndList(t *testing.T) {
	tdb := newTestDB(t)
	ctx := context.Background()

	users := []*entity.User{
		{ID: "u-acc-2", Username: "zoe", Email: "zoe@example.com", FullName: "Zoe K", Role: workflow.RoleAccounting, IsActive: true},
		{ID: "u-acc-1", Username: "amina", Email: "amina@example.com", FullName: "Amina D", Role: workflow.RoleAccounting, IsActive: true},
		{ID: "u-acc-3", Username: "gone", Email: "gone@example.com", Role: workflow.RoleAccounting, IsActive: false},
		{ID: "u-dir", Username: "dir", Email: "dir@example.com", Role: workflow.RoleDirector, IsActive: true},
	}
	for _, u := range users {
		require.NoError(t, tdb.users.Upsert(ctx, u))
	}

	accounting, err := tdb.users.ListByRole(ctx, workflow.RoleAccounting)
	require.NoError(t, err)
	require.Len(t, accounting, 2)
	assert.Equal(t, "amina", accounting[0].Username)
	assert.Equal(t, "zoe", accounting[1].Username)

	users[0].Email = "zoe.k@example.com"
	require.NoError(t, tdb.users.Upsert(ctx, users[0]))
	got, err := tdb.users.GetByID(ctx, "u-acc-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "zoe.k@example.com", got.Email)

	missing, err := tdb.users.GetByID(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAttachmentRepository_Lifecycle(t *testing.T) {
	tdb := newTestDB(t)
	ctx := context.Background()
	req := tdb.insertRequest(t)

	att := &entity.Attachment{
		RequestID:  req.ID,
		FileName:   "quote.pdf",
		FilePath:   "requests/1/quote.pdf",
		FileSize:   2048,
		MimeType:   "application/pdf",
		UploadedBy: "u-emp",
		CreatedAt:  baseTime.Add(time.Minute),
	}
	require.NoError(t, tdb.files.Create(ctx, att))
	assert.NotZero(t, att.ID)

	got, err := tdb.files.GetByID(ctx, att.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "quote.pdf", got.FileName)
	assert.Equal(t, int64(2048), got.FileSize)

	list, err := tdb.files.ListByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, tdb.files.Delete(ctx, att.ID))
	got, err = tdb.files.GetByID(ctx, att.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
