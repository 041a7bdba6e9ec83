package repo

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"task-manager-api/internal/domain"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	Password     string             `bson:"password"`
	RefreshToken *string            `bson:"refreshToken"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// bsonPriority 读取时兼容旧数据里的数字优先级（1/2/3 或 "1"/"2"/"3"），写入仍是字符串
type bsonPriority string

func (p *bsonPriority) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	var n int
	switch t {
	case bsontype.String:
		s := rv.StringValue()
		v, err := strconv.Atoi(s)
		if err != nil {
			*p = bsonPriority(s)
			return nil
		}
		n = v
	case bsontype.Int32:
		n = int(rv.Int32())
	case bsontype.Int64:
		n = int(rv.Int64())
	case bsontype.Double:
		n = int(rv.Double())
	case bsontype.Null, bsontype.Undefined:
		*p = ""
		return nil
	default:
		return fmt.Errorf("decode priority: unsupported bson type %s", t)
	}
	legacy, ok := domain.LegacyPriorities[n]
	if !ok {
		legacy = domain.PriorityMedium
	}
	*p = bsonPriority(legacy)
	return nil
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	DueDate     time.Time          `bson:"dueDate"`
	Priority    bsonPriority       `bson:"priority"`
	Completed   bool               `bson:"completed"`
	User        primitive.ObjectID `bson:"user"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func toUserDoc(u *domain.User) (userDoc, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return userDoc{}, err
	}
	return userDoc{
		ID: oid, Username: u.Username, Email: u.Email, Password: u.PasswordHash,
		RefreshToken: u.RefreshToken, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}, nil
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID: d.ID.Hex(), Username: d.Username, Email: d.Email, PasswordHash: d.Password,
		RefreshToken: d.RefreshToken, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func toTaskDoc(t *domain.Task) (taskDoc, error) {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return taskDoc{}, err
	}
	owner, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return taskDoc{}, err
	}
	return taskDoc{
		ID: oid, Title: t.Title, Description: t.Description, DueDate: t.DueDate,
		Priority: bsonPriority(t.Priority), Completed: t.Completed, User: owner,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}, nil
}

func (d taskDoc) toDomain() domain.Task {
	p := domain.Priority(d.Priority)
	if p == "" {
		p = domain.PriorityMedium
	}
	return domain.Task{
		ID: d.ID.Hex(), Title: d.Title, Description: d.Description, DueDate: d.DueDate,
		Priority: p, Completed: d.Completed, UserID: d.User.Hex(),
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}
