package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const carsCollection = "cars"

type mongoCarRepo struct {
	col *mongo.Collection
}

func NewMongoCarRepo(db *mongo.Database) CarRepository {
	return &mongoCarRepo{col: db.Collection(carsCollection)}
}

func EnsureCarIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(carsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reg_no", Value: 1}}},
		{Keys: bson.D{{Key: "person_name", Value: 1}}},
		{Keys: bson.D{{Key: "make", Value: 1}, {Key: "model", Value: 1}}},
		{Keys: bson.D{{Key: "in_out_date_time", Value: -1}}},
		{Keys: bson.D{{Key: "referral_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create car indexes: %w", err)
	}
	return nil
}

func likeRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func carFilterDoc(f CarFilter) bson.M {
	doc := bson.M{}
	if f.ReferralID != "" {
		doc["referral_id"] = f.ReferralID
	}
	if f.Search != "" {
		re := likeRegex(f.Search)
		doc["$or"] = bson.A{
			bson.M{"reg_no": re},
			bson.M{"person_name": re},
			bson.M{"make": re},
			bson.M{"model": re},
			bson.M{"referral_id": re},
		}
	}
	if f.RegNo != "" {
		doc["reg_no"] = likeRegex(f.RegNo)
	}
	if f.PersonName != "" {
		doc["person_name"] = likeRegex(f.PersonName)
	}
	if f.Make != "" {
		doc["make"] = likeRegex(f.Make)
	}
	if f.Model != "" {
		doc["model"] = likeRegex(f.Model)
	}
	if f.Status != "" {
		doc["in_out_status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		doc["in_out_date_time"] = rng
	}
	return doc
}

func (r *mongoCarRepo) Create(ctx context.Context, c *models.Car) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Photos == nil {
		c.Photos = []string{}
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert car: %w", err)
	}
	return nil
}

func (r *mongoCarRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error) {
	var c models.Car
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find car: %w", err)
	}
	return &c, nil
}

func (r *mongoCarRepo) Replace(ctx context.Context, c *models.Car) error {
	if c.Photos == nil {
		c.Photos = []string{}
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("replace car: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCarRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoCarRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Car, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find cars: %w", err)
	}
	defer cur.Close(ctx)

	cars := []models.Car{}
	if err := cur.All(ctx, &cars); err != nil {
		return nil, fmt.Errorf("decode cars: %w", err)
	}
	return cars, nil
}

func (r *mongoCarRepo) List(ctx context.Context, q CarQuery) ([]models.Car, int64, error) {
	filter := carFilterDoc(q.CarFilter)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count cars: %w", err)
	}

	field, ok := SortFields[q.SortBy]
	if !ok {
		field = SortFields["createdAt"]
	}
	dir := 1
	if q.SortDesc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(q.Skip()).
		SetLimit(q.Limit)

	cars, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

func (r *mongoCarRepo) All(ctx context.Context) ([]models.Car, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *mongoCarRepo) Count(ctx context.Context, f CarFilter) (int64, error) {
	n, err := r.col.CountDocuments(ctx, carFilterDoc(f))
	if err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return n, nil
}

func (r *mongoCarRepo) Recent(ctx context.Context, f CarFilter, n int64) ([]models.Car, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "in_out_date_time", Value: -1}}).
		SetLimit(n)
	return r.find(ctx, carFilterDoc(f), opts)
}

func (r *mongoCarRepo) TopBy(ctx context.Context, f CarFilter, field string, n int64) ([]Bucket, error) {
	stored, ok := SortFields[field]
	if !ok || (field != "regNo" && field != "personName") {
		return nil, fmt.Errorf("cannot group cars by %q", field)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: carFilterDoc(f)}},
		{{Key: "$group", Value: bson.M{"_id": "$" + stored, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: n}},
	}
	buckets := []Bucket{}
	if err := r.aggregate(ctx, pipeline, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *mongoCarRepo) CountByDay(ctx context.Context, f CarFilter, dr DayRange) ([]DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: carFilterDoc(f)}},
		{{Key: "$addFields", Value: bson.M{"local_date": bson.M{"$dateToString": bson.M{
			"format":   "%Y-%m-%d",
			"date":     "$in_out_date_time",
			"timezone": dr.Offset,
		}}}}},
		{{Key: "$match", Value: bson.M{"local_date": bson.M{"$gte": dr.From, "$lte": dr.To}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"date": "$local_date", "status": "$in_out_status"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "date": "$_id.date", "status": "$_id.status", "count": 1}}},
	}
	counts := []DayCount{}
	if err := r.aggregate(ctx, pipeline, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *mongoCarRepo) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate cars: %w", err)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode aggregate: %w", err)
	}
	return nil
}
