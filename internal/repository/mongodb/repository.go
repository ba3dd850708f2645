package mongodb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

const (
	summaryCollection = "period_summaries"
	stockCollection   = "loom_stock"
)

// MongoDBRepository is a PeriodLog over two MongoDB collections. Documents are
// only inserted and are read back sorted by their append sequence.
//
// An append is two inserts without a transaction: if the stock insert fails
// the summary stays behind with no stock documents. That case is logged with
// the orphaned period_id.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// appender is the write side of a collection.
type appender interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName, logger: logger}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// AppendPeriod inserts the summary, then its stock documents, under the next
// sequence number. Single writer at a time is assumed.
func (r *MongoDBRepository) AppendPeriod(ctx context.Context, summary models.PeriodSummary, stocks []models.LoomStockRecord) error {
	return appendPeriod(ctx, r.collection(summaryCollection), r.collection(stockCollection), r.logger, summary, stocks)
}

func appendPeriod(ctx context.Context, summaries, stockDocs appender, logger *zap.Logger, summary models.PeriodSummary, stocks []models.LoomStockRecord) error {
	count, err := summaries.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("count period summaries: %w", err)
	}
	summary.Seq = count + 1

	if _, err := summaries.InsertOne(ctx, summary); err != nil {
		return fmt.Errorf("failed to insert period summary: %w", err)
	}

	if len(stocks) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(stocks))
	for _, s := range stocks {
		s.PeriodID = summary.ID
		s.Seq = summary.Seq
		docs = append(docs, s)
	}
	opts := options.InsertMany().SetOrdered(true)
	if _, err := stockDocs.InsertMany(ctx, docs, opts); err != nil {
		logger.Error("loom stock documents not written after summary",
			zap.String("period_id", summary.ID), zap.Int64("seq", summary.Seq), zap.Error(err))
		return fmt.Errorf("failed to insert loom stock: %w", err)
	}
	return nil
}

// Summaries returns all summaries in append order.
func (r *MongoDBRepository) Summaries(ctx context.Context) ([]models.PeriodSummary, error) {
	var raw []bson.Raw
	if err := r.findSorted(ctx, summaryCollection, &raw); err != nil {
		return nil, err
	}
	out := make([]models.PeriodSummary, 0, len(raw))
	for i, doc := range raw {
		s, err := DecodeSummary(i, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StockRecords returns all loom stock documents in append order.
func (r *MongoDBRepository) StockRecords(ctx context.Context) ([]models.LoomStockRecord, error) {
	var raw []bson.Raw
	if err := r.findSorted(ctx, stockCollection, &raw); err != nil {
		return nil, err
	}
	out := make([]models.LoomStockRecord, 0, len(raw))
	for i, doc := range raw {
		s, err := DecodeStock(i, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *MongoDBRepository) findSorted(ctx context.Context, name string, out *[]bson.Raw) error {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection(name).Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", name, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	for cursor.Next(ctx) {
		*out = append(*out, append(bson.Raw(nil), cursor.Current...))
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", name, err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
