package db_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/udisondev/charsheet/internal/db"
	"github.com/udisondev/charsheet/internal/sheet"
	"github.com/udisondev/charsheet/internal/testutil"
)

// PostgresSuite runs the sheet service against a real PostgreSQL. DB_ADDR
// selects an existing server; otherwise a container is started.
type PostgresSuite struct {
	suite.Suite
	ctx   context.Context
	db    *db.DB
	store *db.PostgresStore
	svc   *db.SheetService
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()

	dbAddr := os.Getenv("DB_ADDR")
	if dbAddr == "" {
		_, dbAddr = testutil.SetupTestDB(s.T())
	}
	if err := db.RunMigrations(s.ctx, dbAddr); err != nil {
		s.T().Fatalf("failed to run migrations: %v", err)
	}

	var err error
	s.db, err = db.New(s.ctx, dbAddr)
	if err != nil {
		s.T().Fatalf("failed to connect to database: %v", err)
	}
	s.store = &db.PostgresStore{SheetRepository: db.NewSheetRepository(s.db.Pool())}
	s.svc = db.NewSheetService(s.store, builtinPolicy)
}

func (s *PostgresSuite) SetupTest() {
	if err := s.cleanupTestData(); err != nil {
		s.T().Fatalf("failed to cleanup test data: %v", err)
	}
}

func (s *PostgresSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *PostgresSuite) cleanupTestData() error {
	_, err := s.db.Pool().Exec(s.ctx, "TRUNCATE TABLE sheet_records, characters CASCADE")
	if err != nil {
		return fmt.Errorf("truncating test tables: %w", err)
	}
	return nil
}

func (s *PostgresSuite) TestRoundTrip() {
	hero := testutil.NewHero(s.T())
	s.Require().NoError(hero.EffectOn("haste"))
	_, err := hero.Advance(3)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.SaveCharacter(s.ctx, testutil.Fixtures.System, hero))

	got, system, err := s.svc.LoadCharacter(s.ctx, testutil.Fixtures.Character)
	s.Require().NoError(err)
	s.Equal(testutil.Fixtures.System, system)
	for _, name := range hero.StatNames() {
		want, _ := hero.StatValue(name)
		have, ok := got.StatValue(name)
		s.True(ok, name)
		s.Equal(want, have, name)
	}

	e, ok := got.Effect("haste")
	s.Require().True(ok)
	s.Equal(sheet.ForcedOn, e.State())
}

func (s *PostgresSuite) TestSaveReplaces() {
	hero := testutil.NewHero(s.T())
	s.Require().NoError(s.svc.SaveCharacter(s.ctx, testutil.Fixtures.System, hero))

	_, err := hero.RemoveEffect("haste")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.SaveCharacter(s.ctx, testutil.Fixtures.System, hero))

	got, _, err := s.svc.LoadCharacter(s.ctx, testutil.Fixtures.Character)
	s.Require().NoError(err)
	s.Empty(got.EffectNames())
}

func (s *PostgresSuite) TestConcurrentSaves() {
	const n = 8

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := sheet.New(fmt.Sprintf("npc_%d", i), sheet.NewRules(nil, nil, nil))
			if err := c.AddStat(sheet.NewStat("hp", fmt.Sprint(i+1))); err != nil {
				errs <- err
				return
			}
			errs <- s.svc.SaveCharacter(s.ctx, "freeform", c)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	names, err := s.store.ListSheets(s.ctx)
	s.Require().NoError(err)
	s.Len(names, n)
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	suite.Run(t, new(PostgresSuite))
}
