package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ErrTxNotWritable is returned when a write is attempted inside View.
var ErrTxNotWritable = errors.New("transaction is not writable")

const (
	collectionConfig      = "ledger_config"
	collectionBalances    = "ledger_balances"
	collectionAllocations = "ledger_allocations"

	configKeyAdmin       = "admin"
	configKeyTotalIssued = "total_issued"
)

// Amounts are stored as decimal strings rather than Decimal128: Decimal128
// carries 34 significant digits, which cannot hold the full signed 128-bit
// integer range the ledger allows.
type configDocument struct {
	Value string `bson:"value"`
}

type balanceDocument struct {
	Balance string `bson:"balance"`
}

type allocationDocument struct {
	Issuer    string `bson:"issuer"`
	Amount    string `bson:"amount"`
	Purpose   string `bson:"purpose"`
	ExpiresAt int64  `bson:"expires_at"`
}

// Store is a MongoDB-backed ledger store. Update runs inside a
// multi-document transaction with snapshot read concern and majority write
// concern, so it requires a replica set or sharded cluster.
type Store struct {
	conn *Client
}

// NewStore connects to MongoDB and returns a ledger store.
func NewStore(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	conn, err := NewClient(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &Store{conn: conn}, nil
}

// View runs fn with read-only access to ledger state.
func (s *Store) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	db, err := s.database(ctx)
	if err != nil {
		return err
	}

	return fn(&mongoTx{ctx: ctx, db: db})
}

// Update runs fn inside a MongoDB transaction. The driver retries the whole
// callback on transient transaction errors; a non-nil error from fn aborts
// the transaction and passes through unwrapped.
func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	client, err := s.conn.ResolveClient(ctx)
	if err != nil {
		return err
	}

	db, err := s.database(ctx)
	if err != nil {
		return err
	}

	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(&mongoTx{ctx: sessCtx, db: db, writable: true})
	}, txnOpts)

	return err
}

// Ping verifies the MongoDB connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *Store) database(ctx context.Context) (*mongo.Database, error) {
	client, err := s.conn.ResolveClient(ctx)
	if err != nil {
		return nil, err
	}

	databaseName, err := s.conn.DatabaseName()
	if err != nil {
		return nil, err
	}

	return client.Database(databaseName), nil
}

// mongoTx reads and writes ledger documents through the transaction's
// session context, so reads observe the transaction's own writes.
type mongoTx struct {
	ctx      context.Context
	db       *mongo.Database
	writable bool
}

func (t *mongoTx) Admin() (ledger.AccountID, bool, error) {
	value, ok, err := t.configValue(configKeyAdmin)
	if err != nil {
		return "", false, err
	}

	return ledger.AccountID(value), ok, nil
}

func (t *mongoTx) SetAdmin(admin ledger.AccountID) error {
	return t.setConfigValue(configKeyAdmin, string(admin))
}

func (t *mongoTx) Balance(account ledger.AccountID) (decimal.Decimal, error) {
	var doc balanceDocument

	err := t.db.Collection(collectionBalances).
		FindOne(t.ctx, bson.M{"_id": string(account)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return decimal.Zero, nil
	}

	if err != nil {
		return decimal.Zero, fmt.Errorf("mongo: read balance: %w", err)
	}

	balance, err := decimal.NewFromString(doc.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("mongo: parse balance for %s: %w", account, err)
	}

	return balance, nil
}

func (t *mongoTx) SetBalance(account ledger.AccountID, balance decimal.Decimal) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	_, err := t.db.Collection(collectionBalances).UpdateOne(t.ctx,
		bson.M{"_id": string(account)},
		bson.M{"$set": bson.M{"balance": balance.String()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: write balance for %s: %w", account, err)
	}

	return nil
}

func (t *mongoTx) Allocation(beneficiary ledger.AccountID) (ledger.Allocation, bool, error) {
	var doc allocationDocument

	err := t.db.Collection(collectionAllocations).
		FindOne(t.ctx, bson.M{"_id": string(beneficiary)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ledger.Allocation{}, false, nil
	}

	if err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("mongo: read allocation: %w", err)
	}

	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return ledger.Allocation{}, false, fmt.Errorf("mongo: parse allocation amount for %s: %w", beneficiary, err)
	}

	return ledger.Allocation{
		Beneficiary: beneficiary,
		Issuer:      ledger.AccountID(doc.Issuer),
		Amount:      amount,
		Purpose:     doc.Purpose,
		ExpiresAt:   doc.ExpiresAt,
	}, true, nil
}

func (t *mongoTx) SetAllocation(allocation ledger.Allocation) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	_, err := t.db.Collection(collectionAllocations).UpdateOne(t.ctx,
		bson.M{"_id": string(allocation.Beneficiary)},
		bson.M{"$set": allocationDocument{
			Issuer:    string(allocation.Issuer),
			Amount:    allocation.Amount.String(),
			Purpose:   allocation.Purpose,
			ExpiresAt: allocation.ExpiresAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: write allocation for %s: %w", allocation.Beneficiary, err)
	}

	return nil
}

func (t *mongoTx) TotalIssued() (decimal.Decimal, error) {
	value, ok, err := t.configValue(configKeyTotalIssued)
	if err != nil {
		return decimal.Zero, err
	}

	if !ok {
		return decimal.Zero, nil
	}

	total, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("mongo: parse total issued: %w", err)
	}

	return total, nil
}

func (t *mongoTx) SetTotalIssued(total decimal.Decimal) error {
	return t.setConfigValue(configKeyTotalIssued, total.String())
}

func (t *mongoTx) configValue(key string) (string, bool, error) {
	var doc configDocument

	err := t.db.Collection(collectionConfig).
		FindOne(t.ctx, bson.M{"_id": key}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("mongo: read config %s: %w", key, err)
	}

	return doc.Value, true, nil
}

func (t *mongoTx) setConfigValue(key, value string) error {
	if !t.writable {
		return ErrTxNotWritable
	}

	_, err := t.db.Collection(collectionConfig).UpdateOne(t.ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: write config %s: %w", key, err)
	}

	return nil
}
