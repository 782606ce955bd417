package repository

import (
	"context"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/utils/clock"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultFirestoreCollection = "kairos"

// Firestore keeps each key as one document of a collection. A document is
// limited to 1 MiB, which bounds the journal size on this backend.
type Firestore struct {
	client     *firestore.Client
	collection string
}

type kvDocument struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type FirestoreOption func(*Firestore)

// WithCollection overrides the collection name
func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

// NewFirestore connects to the given Firestore database
func NewFirestore(ctx context.Context, projectID, databaseID string, clientOpts []option.ClientOption, opts ...FirestoreOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project is required for firestore")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	f := &Firestore{
		client:     client,
		collection: defaultFirestoreCollection,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// documentID escapes "/" which Firestore treats as a path separator
func documentID(key string) string {
	return url.PathEscape(key)
}

func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := f.client.Collection(f.collection).Doc(documentID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "firestore kv", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get firestore document", goerr.V("key", key))
	}

	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode firestore document", goerr.V("key", key))
	}
	if doc.Value == nil {
		doc.Value = []byte{}
	}
	return doc.Value, nil
}

func (f *Firestore) Set(ctx context.Context, key string, value []byte) error {
	doc := kvDocument{
		Value:     value,
		UpdatedAt: clock.Now(ctx),
	}
	if _, err := f.client.Collection(f.collection).Doc(documentID(key)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to set firestore document", goerr.V("key", key))
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
