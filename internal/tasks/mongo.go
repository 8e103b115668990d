package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "tasks"

// ErrInvalidOwner は検証済みトークンの所有者IDが ObjectID として解釈できないことを表します。
var ErrInvalidOwner = errors.New("invalid owner id")

type taskDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId"`
	Title     string             `bson:"title"`
	Deadline  string             `bson:"deadline"`
	Priority  string             `bson:"priority"`
	Completed bool               `bson:"completed"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// MongoStore は MongoDB の tasks コレクションにタスクを保存します。
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		coll: db.Collection(collectionName),
		now:  time.Now,
	}
}

// EnsureIndexes は所有者での一覧取得用のインデックスを作成します。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("user_id"),
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks.userId index: %w", err)
	}
	return nil
}

// Create はタスクを作成し、そのIDを返します。
func (s *MongoStore) Create(ctx context.Context, ownerID string, draft Draft) (string, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return "", err
	}

	doc := taskDocument{
		ID:        primitive.NewObjectID(),
		UserID:    owner,
		Title:     draft.Title,
		Deadline:  draft.Deadline,
		Priority:  string(draft.Priority),
		Completed: false,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

// ListByOwner は所有者のタスクを格納順で返します。
func (s *MongoStore) ListByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.coll.Find(ctx, bson.M{"userId": owner})
	if err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]Task, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toTask())
	}
	return out, nil
}

// Replace は所有者とIDが一致するタスクの内容を置き換えます。
// 値が変わらない更新も一致していれば true です。
func (s *MongoStore) Replace(ctx context.Context, ownerID, taskID string, update Update) (bool, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return false, err
	}
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return false, nil
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "userId": owner},
		bson.M{"$set": bson.M{
			"title":     update.Title,
			"deadline":  update.Deadline,
			"priority":  string(update.Priority),
			"completed": update.Completed,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Remove は所有者とIDが一致するタスクを削除します。
func (s *MongoStore) Remove(ctx context.Context, ownerID, taskID string) (bool, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return false, err
	}
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return false, nil
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": owner})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func parseOwner(ownerID string) (primitive.ObjectID, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidOwner, ownerID)
	}
	return owner, nil
}

func (d *taskDocument) toTask() Task {
	return Task{
		ID:        d.ID.Hex(),
		OwnerID:   d.UserID.Hex(),
		Title:     d.Title,
		Deadline:  d.Deadline,
		Priority:  Priority(d.Priority),
		Completed: d.Completed,
		CreatedAt: d.CreatedAt,
	}
}
