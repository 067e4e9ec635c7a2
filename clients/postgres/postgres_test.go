package postgres

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/artie-labs/starsync/lib/source"
)

type StoreTestSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.db = db
	s.mock = mock
	s.store = NewStore(db)
}

func (s *StoreTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *StoreTestSuite) TestExecute() {
	since := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT work_id, title FROM work WHERE updated_at > \$1`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"work_id", "title"}).AddRow(int64(1), "Dune").AddRow(int64(2), []byte("Emma")))
	s.mock.ExpectCommit()

	rows, err := s.store.Execute(s.T().Context(), source.NewQuery("SELECT work_id, title FROM work WHERE updated_at > $1", since))
	s.NoError(err)
	s.Equal([]source.Row{
		{"work_id": int64(1), "title": "Dune"},
		{"work_id": int64(2), "title": "Emma"},
	}, rows)

	// The connection went back to the pool.
	s.Equal(0, s.db.Stats().InUse)
}

func (s *StoreTestSuite) TestExecute_NoRows() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery("SELECT medium_id FROM medium").WillReturnRows(sqlmock.NewRows([]string{"medium_id"}))
	s.mock.ExpectCommit()

	rows, err := s.store.Execute(s.T().Context(), source.NewQuery("SELECT medium_id FROM medium"))
	s.NoError(err)
	s.Empty(rows)
}

func (s *StoreTestSuite) TestExecute_QueryError() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf(`relation "work" does not exist`))
	s.mock.ExpectRollback()

	_, err := s.store.Execute(s.T().Context(), source.NewQuery("SELECT * FROM work"))
	s.ErrorContains(err, `failed to run query: relation "work" does not exist`)

	// The connection is released even when the query fails.
	s.Equal(0, s.db.Stats().InUse)
}

func (s *StoreTestSuite) TestExecute_BeginError() {
	s.mock.ExpectBegin().WillReturnError(fmt.Errorf("too many connections"))

	_, err := s.store.Execute(s.T().Context(), source.NewQuery("SELECT 1"))
	s.ErrorContains(err, "failed to start tx: too many connections")
	s.Equal(0, s.db.Stats().InUse)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
