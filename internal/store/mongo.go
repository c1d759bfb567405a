package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/daybook/internal/models"
)

// MongoStore handles user, task and expense CRUD in MongoDB. Documents use
// integer ids as _id, handed out by the counters collection.
type MongoStore struct {
	db       *mongo.Database
	counters *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, counters: db.Collection("counters")}
}

// OpenMongo connects to uri and returns the repositories stored in database name.
func OpenMongo(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	ms := NewMongoStore(client.Database(name))
	if err := ms.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &Store{
		Users:    mongoUsers{ms, ms.db.Collection("users")},
		Tasks:    mongoTasks{ms, ms.db.Collection("tasks")},
		Expenses: mongoExpenses{ms, ms.db.Collection("expenses")},
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

// EnsureIndexes creates the unique username index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	return nil
}

// nextID atomically increments and returns the counter for collection.
func (s *MongoStore) nextID(ctx context.Context, collection string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("mongo next id for %s: %w", collection, err)
	}
	return counter.Seq, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (T, bool, error) {
	var doc T
	err := col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, err
	}
	return doc, true, nil
}

func deleteByID(ctx context.Context, col *mongo.Collection, id int64) (bool, error) {
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("mongo delete: %w", err)
	}
	return res.DeletedCount > 0, nil
}

type mongoUsers struct {
	s   *MongoStore
	col *mongo.Collection
}

func (r mongoUsers) Create(ctx context.Context, u models.NewUser) (models.User, error) {
	id, err := r.s.nextID(ctx, "users")
	if err != nil {
		return models.User{}, err
	}
	user := models.User{ID: id, Username: u.Username, Password: u.Password, CreatedAt: time.Now().UTC()}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, models.ErrDuplicateUsername
		}
		return models.User{}, fmt.Errorf("mongo insert user: %w", err)
	}
	return user, nil
}

func (r mongoUsers) Get(ctx context.Context, id int64) (models.User, bool, error) {
	return findOne[models.User](ctx, r.col, bson.M{"_id": id})
}

func (r mongoUsers) GetByUsername(ctx context.Context, username string) (models.User, bool, error) {
	return findOne[models.User](ctx, r.col, bson.M{"username": username})
}

func (r mongoUsers) List(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, r.col)
}

type mongoTasks struct {
	s   *MongoStore
	col *mongo.Collection
}

func (r mongoTasks) Create(ctx context.Context, t models.Task) (models.Task, error) {
	id, err := r.s.nextID(ctx, "tasks")
	if err != nil {
		return models.Task{}, err
	}
	t.ID = id
	if _, err := r.col.InsertOne(ctx, t); err != nil {
		return models.Task{}, fmt.Errorf("mongo insert task: %w", err)
	}
	return t, nil
}

func (r mongoTasks) Get(ctx context.Context, id int64) (models.Task, bool, error) {
	return findOne[models.Task](ctx, r.col, bson.M{"_id": id})
}

func (r mongoTasks) List(ctx context.Context) ([]models.Task, error) {
	return findAll[models.Task](ctx, r.col)
}

func (r mongoTasks) Update(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, bool, error) {
	set := bson.M{}
	unset := bson.M{}
	if u.Title.Present() {
		set["title"] = u.Title.Value
	}
	if u.Description.Set {
		if u.Description.Null {
			unset["description"] = ""
		} else {
			set["description"] = u.Description.Value
		}
	}
	if u.Date.Present() {
		set["date"] = u.Date.Value
	}
	if u.Completed.Present() {
		set["completed"] = u.Completed.Value
	}
	if len(set) == 0 && len(unset) == 0 {
		return r.Get(ctx, id)
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	var t models.Task
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, false, fmt.Errorf("mongo update task: %w", err)
	}
	return t, true, nil
}

func (r mongoTasks) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.col, id)
}

type mongoExpenses struct {
	s   *MongoStore
	col *mongo.Collection
}

func (r mongoExpenses) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	id, err := r.s.nextID(ctx, "expenses")
	if err != nil {
		return models.Expense{}, err
	}
	e.ID = id
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return models.Expense{}, fmt.Errorf("mongo insert expense: %w", err)
	}
	return e, nil
}

func (r mongoExpenses) Get(ctx context.Context, id int64) (models.Expense, bool, error) {
	return findOne[models.Expense](ctx, r.col, bson.M{"_id": id})
}

func (r mongoExpenses) List(ctx context.Context) ([]models.Expense, error) {
	return findAll[models.Expense](ctx, r.col)
}

func (r mongoExpenses) Update(ctx context.Context, id int64, u models.ExpenseUpdate) (models.Expense, bool, error) {
	set := bson.M{}
	if u.Description.Present() {
		set["description"] = u.Description.Value
	}
	if u.Amount.Present() {
		set["amount"] = u.Amount.Value
	}
	if u.Category.Present() {
		set["category"] = u.Category.Value
	}
	if u.Date.Present() {
		set["date"] = u.Date.Value
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	var e models.Expense
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Expense{}, false, nil
	}
	if err != nil {
		return models.Expense{}, false, fmt.Errorf("mongo update expense: %w", err)
	}
	return e, true, nil
}

func (r mongoExpenses) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.col, id)
}
