package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

func setupPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStoreFromDB(db), mock, db
}

func TestPostgresMigrate(t *testing.T) {
	s, mock, db := setupPostgres(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS source_domains")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDomains(t *testing.T) {
	s, mock, db := setupPostgres(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO source_domains (domain) VALUES ($1) ON CONFLICT (domain) DO NOTHING")).
		WithArgs("fda.gov").
		WillReturnResult(sqlmock.NewResult(0, 1))
	d, err := s.AddDomain(ctx, "https://www.fda.gov/")
	require.NoError(t, err)
	assert.Equal(t, "fda.gov", d)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT domain FROM source_domains")).
		WillReturnRows(sqlmock.NewRows([]string{"domain"}).AddRow("fda.gov").AddRow("iso.org"))
	domains, err := s.ListDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fda.gov", "iso.org"}, domains)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM source_domains WHERE domain = $1")).
		WithArgs("iso.org").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.RemoveDomain(ctx, "iso.org"), ErrNotFound)

	_, err = s.AddDomain(ctx, "not a domain")
	assert.ErrorIs(t, err, ErrInvalidDomain)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWatches(t *testing.T) {
	s, mock, db := setupPostgres(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO watches (name, topic, markets, timeframe)")).
		WithArgs("batteries", "lithium", sqlmock.AnyArg(), "12mo").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveWatch(ctx, model.WatchQuery{
		Name: "batteries", Topic: "lithium\x00", Markets: []string{"EU (CE)"}, Timeframe: model.Timeframe12Months,
	}))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, topic, markets, timeframe FROM watches WHERE name = $1")).
		WithArgs("batteries").
		WillReturnRows(sqlmock.NewRows([]string{"name", "topic", "markets", "timeframe"}).
			AddRow("batteries", "lithium", `{"EU (CE)","USA (FDA)"}`, "12mo"))
	w, err := s.GetWatch(ctx, "batteries")
	require.NoError(t, err)
	assert.Equal(t, []string{"EU (CE)", "USA (FDA)"}, w.Markets)
	assert.Equal(t, model.Timeframe12Months, w.Timeframe)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, topic, markets, timeframe FROM watches WHERE name = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = s.GetWatch(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, topic, markets, timeframe FROM watches ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "topic", "markets", "timeframe"}).
			AddRow("a", "t1", "{}", "").
			AddRow("b", "t2", "{x}", "3y"))
	list, err := s.ListWatches(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Empty(t, list[0].Markets)
	assert.Equal(t, []string{"x"}, list[1].Markets)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM watches WHERE name = $1")).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.DeleteWatch(ctx, "a"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "ab", sanitize("a\x00b"))
	assert.Equal(t, "ab", sanitize("a\xffb"))
}
