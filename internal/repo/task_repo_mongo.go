package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"task-manager-api/internal/domain"
)

type MongoTaskRepo struct{ c *mongo.Collection }

func NewMongoTaskRepo(db *mongo.Database) *MongoTaskRepo {
	return &MongoTaskRepo{c: db.Collection(tasksCollection)}
}

func (r *MongoTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	doc, err := toTaskDoc(t)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepo) List(ctx context.Context, ownerID string, f domain.TaskFilter) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0)
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return tasks, nil
	}
	filter := bson.M{"user": owner}
	if f.Priority != nil {
		filter["priority"] = bson.M{"$in": priorityAliases(*f.Priority)}
	}
	if f.Completed != nil {
		filter["completed"] = *f.Completed
	}
	if f.DueBefore != nil {
		filter["dueDate"] = bson.M{"$lte": f.DueBefore.UTC()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d taskDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// priorityAliases 枚举值及其对应的旧数字写法，未回填的文档也能被过滤到
func priorityAliases(p domain.Priority) bson.A {
	out := bson.A{string(p)}
	for n, lp := range domain.LegacyPriorities {
		if lp == p {
			out = append(out, n, strconv.Itoa(n))
		}
	}
	return out
}

func (r *MongoTaskRepo) ownedFilter(id, ownerID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user": owner}, true
}

func (r *MongoTaskRepo) FindOwned(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	filter, ok := r.ownedFilter(id, ownerID)
	if !ok {
		return nil, nil
	}
	var d taskDoc
	err := r.c.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	t := d.toDomain()
	return &t, nil
}

func (r *MongoTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	filter, ok := r.ownedFilter(t.ID, t.UserID)
	if !ok {
		return fmt.Errorf("update task: malformed id %q", t.ID)
	}
	_, err := r.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"title":       t.Title,
		"description": t.Description,
		"dueDate":     t.DueDate,
		"priority":    string(t.Priority),
		"completed":   t.Completed,
		"updatedAt":   t.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepo) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	filter, ok := r.ownedFilter(id, ownerID)
	if !ok {
		return false, nil
	}
	res, err := r.c.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// RemapPriority 旧文档里 priority 可能是数字也可能是数字字符串
func (r *MongoTaskRepo) RemapPriority(ctx context.Context, legacy int, p domain.Priority) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"priority": bson.M{"$in": bson.A{legacy, strconv.Itoa(legacy)}}},
		bson.M{"$set": bson.M{"priority": string(p)}})
	if err != nil {
		return 0, fmt.Errorf("remap priority %d: %w", legacy, err)
	}
	return res.ModifiedCount, nil
}

// EnsureIndexes 启动时建索引（幂等）
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	_, err = db.Collection(tasksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("user_created")},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "dueDate", Value: 1}}, Options: options.Index().SetName("user_due")},
	})
	if err != nil {
		return fmt.Errorf("tasks index: %w", err)
	}
	return nil
}
