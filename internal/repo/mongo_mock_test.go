package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"task-manager-api/internal/domain"
)

// mock deployment：不需要真实 mongo，只校验发出的命令和对响应的解释

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func updated(n int) []bson.D {
	return []bson.D{mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: n},
		bson.E{Key: "nModified", Value: n},
	)}
}

func TestMongoUserRepo_SwapRefreshToken(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	uid := primitive.NewObjectID()

	mt.Run("matched", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)
		mt.AddMockResponses(updated(1)...)

		ok, err := repo.SwapRefreshToken(ctx, uid.Hex(), "old", "new")
		require.NoError(mt, err)
		assert.True(mt, ok)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, uid, cmd.Lookup("updates", "0", "q", "_id").ObjectID())
		assert.Equal(mt, "old", cmd.Lookup("updates", "0", "q", "refreshToken").StringValue())
		assert.Equal(mt, "new", cmd.Lookup("updates", "0", "u", "$set", "refreshToken").StringValue())
	})

	mt.Run("stale token", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)
		mt.AddMockResponses(updated(0)...)

		ok, err := repo.SwapRefreshToken(ctx, uid.Hex(), "old", "new")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)

		ok, err := repo.SwapRefreshToken(ctx, "nope", "old", "new")
		require.NoError(mt, err)
		assert.False(mt, ok)
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestMongoUserRepo_CreateDuplicate(t *testing.T) {
	mt := newMock(t)
	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewMongoUserRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Create(context.Background(), newUser("dup@example.com"))
		assert.ErrorIs(mt, err, domain.ErrDuplicate)
	})
}

func TestMongoTaskRepo_FindOwned(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	id, owner := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("scoped to owner", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.tasks", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "title", Value: "legacy"},
			{Key: "dueDate", Value: time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)},
			{Key: "priority", Value: int32(3)},
			{Key: "completed", Value: true},
			{Key: "user", Value: owner},
		}))

		got, err := repo.FindOwned(ctx, id.Hex(), owner.Hex())
		require.NoError(mt, err)
		require.NotNil(mt, got)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, owner.Hex(), got.UserID)
		assert.Equal(mt, domain.PriorityHigh, got.Priority)
		assert.True(mt, got.Completed)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, id, cmd.Lookup("filter", "_id").ObjectID())
		assert.Equal(mt, owner, cmd.Lookup("filter", "user").ObjectID())
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.tasks", mtest.FirstBatch))

		got, err := repo.FindOwned(ctx, id.Hex(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)

		got, err := repo.FindOwned(ctx, "123", owner.Hex())
		require.NoError(mt, err)
		assert.Nil(mt, got)
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestMongoTaskRepo_ListDecodesLegacyPriorities(t *testing.T) {
	mt := newMock(t)
	owner := primitive.NewObjectID()
	due := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("mixed documents", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.tasks", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "title", Value: "a"}, {Key: "dueDate", Value: due}, {Key: "priority", Value: "low"}, {Key: "user", Value: owner}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "title", Value: "b"}, {Key: "dueDate", Value: due}, {Key: "priority", Value: int32(2)}, {Key: "user", Value: owner}},
		))

		high := domain.PriorityHigh
		list, err := repo.List(context.Background(), owner.Hex(), domain.TaskFilter{Priority: &high})
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		assert.Equal(mt, domain.PriorityLow, list[0].Priority)
		assert.Equal(mt, domain.PriorityMedium, list[1].Priority)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, owner, cmd.Lookup("filter", "user").ObjectID())
		in := cmd.Lookup("filter", "priority", "$in").Array()
		assert.Equal(mt, "high", in.Index(0).Value().StringValue())
	})
}

func TestMongoTaskRepo_DeleteOwned(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()
	id, owner := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("deleted", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		ok, err := repo.DeleteOwned(ctx, id.Hex(), owner.Hex())
		require.NoError(mt, err)
		assert.True(mt, ok)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, owner, cmd.Lookup("deletes", "0", "q", "user").ObjectID())
	})

	mt.Run("other owner", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		ok, err := repo.DeleteOwned(ctx, id.Hex(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}

func TestMongoTaskRepo_RemapPriorityCommand(t *testing.T) {
	mt := newMock(t)
	mt.Run("matches number and numeric string", func(mt *mtest.T) {
		repo := NewMongoTaskRepo(mt.DB)
		mt.AddMockResponses(updated(2)...)

		n, err := repo.RemapPriority(context.Background(), 3, domain.PriorityHigh)
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)

		cmd := mt.GetStartedEvent().Command
		in := cmd.Lookup("updates", "0", "q", "priority", "$in").Array()
		vals, err := in.Values()
		require.NoError(mt, err)
		require.Len(mt, vals, 2)
		assert.EqualValues(mt, 3, vals[0].AsInt64())
		assert.Equal(mt, "3", vals[1].StringValue())
		assert.Equal(mt, "high", cmd.Lookup("updates", "0", "u", "$set", "priority").StringValue())
		assert.True(mt, cmd.Lookup("updates", "0", "multi").Boolean())
	})
}
