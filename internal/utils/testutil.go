package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	envOnce      sync.Once
	testMongoURI string
)

// testMongo resolves MONGO_URI, loading .env from the repository root first
// so tests behave the same whether run from the root or a package directory.
func testMongo() string {
	envOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		root := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(root, ".env")); err != nil {
			godotenv.Load()
		}
		testMongoURI = os.Getenv("MONGO_URI")
	})
	return testMongoURI
}

// SetupTestDB connects to the database behind MONGO_URI and drops the named
// collections so each test starts from an empty dataset. The connection is
// closed when the test finishes.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()

	uri := testMongo()
	require.NotEmpty(t, uri, "MONGO_URI must be set to run database tests")

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(dbName)
	for _, name := range collections {
		_ = db.Collection(name).Drop(context.Background())
	}
	return db
}
