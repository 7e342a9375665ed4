package sqlite_test

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/geneasync/internal/store/sqlite"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/store"
	"github.com/agentstation/geneasync/pkg/store/storetest"
)

func openMemory(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openMemory)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "family.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.CreatePerson()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	var versions int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	p, err := tx.CreatePerson()
	require.NoError(t, err)
	assert.Equal(t, "I0002", p.ID)
}

func TestBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(stderrors.New("database is locked"))

	_, err = sqlite.NewWithDB(db).Begin(context.Background())
	require.Error(t, err)
	var resErr *errors.ResourceError
	assert.ErrorAs(t, err, &resErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(stderrors.New("disk I/O error"))

	tx, err := sqlite.NewWithDB(db).Begin(context.Background())
	require.NoError(t, err)
	err = tx.Commit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitPersonRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE persons SET").
		WithArgs("Jean", "Dupont", "male", "", "", "I0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM person_links").
		WithArgs("I0001").
		WillReturnError(stderrors.New("constraint failed"))
	mock.ExpectRollback()

	tx, err := sqlite.NewWithDB(db).Begin(context.Background())
	require.NoError(t, err)

	err = tx.CommitPerson(&genealogy.Person{ID: "I0001", FirstName: "Jean", LastName: "Dupont", Sex: genealogy.Male})
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitPersonUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE persons SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := sqlite.NewWithDB(db).Begin(context.Background())
	require.NoError(t, err)
	err = tx.CommitPerson(&genealogy.Person{ID: "I0042"})
	assert.True(t, errors.IsNotFound(err))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindFamilyQueriesBothSlotOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM families").
		WithArgs("I0002", "I0001", "I0001", "I0002", "I0002").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	tx, err := sqlite.NewWithDB(db).Begin(context.Background())
	require.NoError(t, err)
	_, ok, err := tx.FindFamily("I0002", "I0001")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
