package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/domain"
)

func sampleItinerary() domain.Itinerary {
	return domain.Itinerary{
		ID:           "cs1abc",
		UpdatedAt:    time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		TourOverview: domain.TourOverview{TripTitle: "Singapore Escape", NumberOfTravellers: 2},
		Hotels:       []domain.Hotel{{ID: "h1", Name: "Raffles"}},
	}
}

func TestStorageRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewStorageRepository(memoryStorage.New())
	defer repo.Close()

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItineraryNotFound)

	it := sampleItinerary()
	require.NoError(t, repo.Save(ctx, it))

	got, err := repo.Load(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Singapore Escape", got.TourOverview.TripTitle)
	assert.Equal(t, "Raffles", got.Hotels[0].Name)

	require.NoError(t, repo.Delete(ctx, it.ID))
	_, err = repo.Load(ctx, it.ID)
	assert.ErrorIs(t, err, domain.ErrItineraryNotFound)
}

func TestStorageRepository_CorruptValue(t *testing.T) {
	store := memoryStorage.New()
	require.NoError(t, store.Set(keyPrefix+"bad", []byte("{not json"), 0))

	_, err := NewStorageRepository(store).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrItineraryNotFound)
}

func TestNewRedis_FallsBackWhenUnreachable(t *testing.T) {
	repo := NewRedis("127.0.0.1:1", 0)
	require.NotNil(t, repo)
}

func TestPostgresDSN_BuildsURL(t *testing.T) {
	dsn, err := postgresDSN(config.PostgresConfig{
		Host:     "localhost",
		Database: "itineraries",
		User:     "user",
		Password: "p@ss word",
		SSLMode:  "disable",
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/itineraries", u.Path)
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestPostgresDSN_HostVariants(t *testing.T) {
	base := config.PostgresConfig{Database: "db", User: "u", Port: 6432}

	raw := "postgres://u:p@localhost:5432/db?sslmode=disable"
	dsn, err := postgresDSN(config.PostgresConfig{Host: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, dsn)

	ipv6 := base
	ipv6.Host = "::1"
	dsn, err = postgresDSN(ipv6)
	require.NoError(t, err)
	assert.Contains(t, dsn, "[::1]:6432")

	explicit := base
	explicit.Host = "db.internal:7000"
	dsn, err = postgresDSN(explicit)
	require.NoError(t, err)
	assert.Contains(t, dsn, "db.internal:7000")

	for _, cfg := range []config.PostgresConfig{{}, {Host: "h"}, {Host: "h", Database: "d"}} {
		_, err := postgresDSN(cfg)
		assert.Error(t, err)
	}
}

func TestPostgresRepository_SaveLoadDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgres(db)
	ctx := context.Background()
	it := sampleItinerary()
	raw, err := json.Marshal(it)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO itineraries").
		WithArgs(it.ID, sqlmock.AnyArg(), it.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(ctx, it))

	mock.ExpectQuery("SELECT data FROM itineraries").
		WithArgs(it.ID).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(raw))
	got, err := repo.Load(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.TourOverview.TripTitle, got.TourOverview.TripTitle)

	mock.ExpectQuery("SELECT data FROM itineraries").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	_, err = repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrItineraryNotFound)

	mock.ExpectExec("DELETE FROM itineraries").
		WithArgs(it.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, it.ID))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_EnsureSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("permission denied")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS itineraries").WillReturnError(boom)

	err = NewPostgres(db).EnsureSchema(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestOpenPostgres_InvalidConfig(t *testing.T) {
	_, err := OpenPostgres(context.Background(), config.PostgresConfig{})
	assert.Error(t, err)
}
