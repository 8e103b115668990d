package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	owner := primitive.NewObjectID().Hex()

	mt.Run("create returns id", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := store.Create(context.Background(), owner, Draft{Title: "Buy milk", Deadline: "2024-06-01", Priority: PriorityHigh})
		if err != nil {
			mt.Fatalf("Create returned error: %v", err)
		}
		if !primitive.IsValidObjectID(id) {
			mt.Fatalf("expected object id, got %q", id)
		}
	})

	mt.Run("list by owner", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		ownerID, _ := primitive.ObjectIDFromHex(owner)
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "smart-todo.tasks", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: first},
				{Key: "userId", Value: ownerID},
				{Key: "title", Value: "Buy milk"},
				{Key: "deadline", Value: "2024-06-01"},
				{Key: "priority", Value: "high"},
				{Key: "completed", Value: false},
				{Key: "createdAt", Value: time.Now().UTC()},
			},
			bson.D{
				{Key: "_id", Value: second},
				{Key: "userId", Value: ownerID},
				{Key: "title", Value: "Walk dog"},
				{Key: "deadline", Value: "2024-06-02"},
				{Key: "priority", Value: "low"},
				{Key: "completed", Value: true},
				{Key: "createdAt", Value: time.Now().UTC()},
			},
		))

		list, err := store.ListByOwner(context.Background(), owner)
		if err != nil {
			mt.Fatalf("ListByOwner returned error: %v", err)
		}
		if len(list) != 2 || list[0].ID != first.Hex() || list[1].Title != "Walk dog" || !list[1].Completed {
			mt.Fatalf("unexpected list: %#v", list)
		}
	})

	mt.Run("replace with no match", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		ok, err := store.Replace(context.Background(), owner, primitive.NewObjectID().Hex(), Update{Title: "x", Deadline: "2024-06-01", Priority: PriorityLow})
		if err != nil {
			mt.Fatalf("Replace returned error: %v", err)
		}
		if ok {
			mt.Fatal("expected no match")
		}
	})

	mt.Run("replace unchanged still matches", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		ok, err := store.Replace(context.Background(), owner, primitive.NewObjectID().Hex(), Update{Title: "x", Deadline: "2024-06-01", Priority: PriorityLow})
		if err != nil || !ok {
			mt.Fatalf("Replace = %v, %v", ok, err)
		}
	})

	mt.Run("remove", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		ok, err := store.Remove(context.Background(), owner, primitive.NewObjectID().Hex())
		if err != nil || !ok {
			mt.Fatalf("Remove = %v, %v", ok, err)
		}
	})

	mt.Run("invalid task id matches nothing", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)

		ok, err := store.Remove(context.Background(), owner, "not-an-object-id")
		if err != nil || ok {
			mt.Fatalf("Remove = %v, %v", ok, err)
		}
		ok, err = store.Replace(context.Background(), owner, "not-an-object-id", Update{Title: "x"})
		if err != nil || ok {
			mt.Fatalf("Replace = %v, %v", ok, err)
		}
	})

	mt.Run("invalid owner is an error", func(mt *mtest.T) {
		store := NewMongoStore(mt.DB)

		_, err := store.ListByOwner(context.Background(), "bad-owner")
		if !errors.Is(err, ErrInvalidOwner) {
			mt.Fatalf("expected ErrInvalidOwner, got %v", err)
		}
	})
}
