package mongodb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testDBName = "test_webcarros"

var testDB *mongo.Database

// TestMain starts a throwaway MongoDB when Docker is reachable. Without Docker
// the repository tests are skipped and only the pure helpers run.
func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		log.Println("Docker unavailable, skipping MongoDB repository tests")
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=root",
			"MONGO_INITDB_ROOT_PASSWORD=password",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	uri := fmt.Sprintf("mongodb://root:password@%s/?authSource=admin", resource.GetHostPort("27017/tcp"))

	var client *mongo.Client
	if err := pool.Retry(func() error {
		var errRetry error
		client, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}
	testDB = client.Database(testDBName)

	code := m.Run()

	_ = client.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Fatalf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func newTestRepo(t *testing.T) *ListingRepository {
	t.Helper()
	if testDB == nil {
		t.Skip("MongoDB not available")
	}
	_, err := testDB.Collection("cars").DeleteMany(context.Background(), bson.M{})
	require.NoError(t, err)

	repo := NewListingRepository(testDB, "cars", logger.NewNop())
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

func sampleListing(name, uid string) *domain.Listing {
	return &domain.Listing{
		Name:        name,
		Model:       "1.0 FLEX",
		Year:        "2016/2016",
		Km:          "32000",
		Price:       "45000",
		City:        "Campo Grande",
		Whatsapp:    "67999998888",
		Description: "single owner",
		Owner:       "Ana",
		UID:         uid,
		Images: []domain.ImageRecord{
			{UID: uid, Name: "a1", URL: "https://cdn.example/images/" + uid + "/a1"},
		},
	}
}

func TestBuildFilter(t *testing.T) {
	assert.Empty(t, buildFilter(domain.SearchQuery{}))

	f := buildFilter(domain.SearchQuery{Term: "HON"})
	assert.Equal(t, bson.M{"$gte": "HON", "$lt": "HON\uf8ff"}, f["name"])
	assert.NotContains(t, f, "uid")

	f = buildFilter(domain.SearchQuery{OwnerID: "u1"})
	assert.Equal(t, "u1", f["uid"])
	assert.NotContains(t, f, "name")
}

func TestListingRepository_CreateAndFindByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	l := sampleListing("HONDA CIVIC", "u1")
	require.NoError(t, repo.Create(ctx, l))
	assert.NotEmpty(t, l.ID)
	assert.False(t, l.Created.IsZero())

	got, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "HONDA CIVIC", got.Name)
	assert.Equal(t, "u1", got.UID)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "a1", got.Images[0].Name)
	assert.Empty(t, got.Images[0].PreviewURL)
}

func TestListingRepository_FindByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByID(context.Background(), "000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	_, err = repo.FindByID(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	l := sampleListing("FIAT UNO", "u1")
	require.NoError(t, repo.Create(ctx, l))

	require.NoError(t, repo.Delete(ctx, l.ID))
	_, err := repo.FindByID(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, l.ID), domain.ErrListingNotFound)
}

func TestListingRepository_Find_PrefixAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, name := range []string{"HONDA CIVIC", "HONDA FIT", "FIAT UNO", "HYUNDAI HB20"} {
		require.NoError(t, repo.Create(ctx, sampleListing(name, "u1")))
	}
	require.NoError(t, repo.Create(ctx, sampleListing("HONDA CITY", "u2")))

	all, err := repo.Find(ctx, domain.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "HONDA CITY", all[0].Name)
	assert.Equal(t, "HONDA CIVIC", all[4].Name)

	hon, err := repo.Find(ctx, domain.SearchQuery{Term: "HON"})
	require.NoError(t, err)
	names := make([]string, 0, len(hon))
	for _, l := range hon {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"HONDA CITY", "HONDA FIT", "HONDA CIVIC"}, names)

	none, err := repo.Find(ctx, domain.SearchQuery{Term: "ZZZ"})
	require.NoError(t, err)
	assert.Empty(t, none)

	mine, err := repo.Find(ctx, domain.SearchQuery{OwnerID: "u2"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "HONDA CITY", mine[0].Name)
}

func TestListingRepository_Find_PrefixUpperBoundIsExclusive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleListing("HONDA", "u1")))
	require.NoError(t, repo.Create(ctx, sampleListing("HON"+prefixUpperBound, "u1")))

	got, err := repo.Find(ctx, domain.SearchQuery{Term: "HON"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "HONDA", got[0].Name)
}
