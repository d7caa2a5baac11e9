package motif

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"seqreg/internal/registry/models"
	id "seqreg/pkg/domain"
	"seqreg/pkg/platform/sentinel"
)

type MotifStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MotifStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMotifStoreSuite(t *testing.T) {
	suite.Run(t, new(MotifStoreSuite))
}

func (s *MotifStoreSuite) newMotif(pattern string) *models.Motif {
	m, err := models.NewMotif(id.NewMotifID(), pattern, time.Now())
	s.Require().NoError(err)
	return m
}

func (s *MotifStoreSuite) patterns(list []*models.Motif) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.Pattern)
	}
	return out
}

// TestPatternUniqueness verifies duplicates are reported without mutation.
func (s *MotifStoreSuite) TestPatternUniqueness() {
	first := s.newMotif("atcg")
	stored, added, err := s.store.AddIfAbsent(s.ctx, first)
	s.Require().NoError(err)
	s.True(added)
	s.Equal(first.ID, stored.ID)

	second := s.newMotif("ATCG")
	existing, added, err := s.store.AddIfAbsent(s.ctx, second)
	s.Require().NoError(err)
	s.False(added)
	s.Equal(first.ID, existing.ID, "duplicate add returns the original record")

	count, _ := s.store.Count(s.ctx)
	s.Equal(1, count)
}

func (s *MotifStoreSuite) TestDuplicateKeepsActiveFlag() {
	m := s.newMotif("TATA")
	_, _, err := s.store.AddIfAbsent(s.ctx, m)
	s.Require().NoError(err)
	_, err = s.store.SetActive(s.ctx, m.ID, false)
	s.Require().NoError(err)

	existing, added, err := s.store.AddIfAbsent(s.ctx, s.newMotif("tata"))
	s.Require().NoError(err)
	s.False(added)
	s.False(existing.Active, "duplicate add must not re-enable the motif")
}

// TestRemoveFreesPattern verifies a removed pattern can be added again.
func (s *MotifStoreSuite) TestRemoveFreesPattern() {
	m := s.newMotif("GATC")
	_, _, err := s.store.AddIfAbsent(s.ctx, m)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Remove(s.ctx, m.ID))
	s.ErrorIs(s.store.Remove(s.ctx, m.ID), sentinel.ErrNotFound)

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	again := s.newMotif("gatc")
	_, added, err := s.store.AddIfAbsent(s.ctx, again)
	s.Require().NoError(err)
	s.True(added)
	s.NotEqual(m.ID, again.ID)
}

func (s *MotifStoreSuite) TestOrderAndActiveFilter() {
	a, b, c := s.newMotif("AT"), s.newMotif("CG"), s.newMotif("GC")
	for _, m := range []*models.Motif{a, b, c} {
		_, _, err := s.store.AddIfAbsent(s.ctx, m)
		s.Require().NoError(err)
	}

	_, err := s.store.SetActive(s.ctx, b.ID, false)
	s.Require().NoError(err)

	active, _ := s.store.ListActive(s.ctx)
	s.Equal([]string{"AT", "GC"}, s.patterns(active))
	all, _ := s.store.ListAll(s.ctx)
	s.Equal([]string{"AT", "CG", "GC"}, s.patterns(all))

	s.Require().NoError(s.store.Remove(s.ctx, a.ID))
	all, _ = s.store.ListAll(s.ctx)
	s.Equal([]string{"CG", "GC"}, s.patterns(all))

	_, err = s.store.SetActive(s.ctx, a.ID, true)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDuplicateAdds verifies exactly one of many racing adds wins.
func (s *MotifStoreSuite) TestConcurrentDuplicateAdds() {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		total = 40
	)
	for range total {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, added, err := s.store.AddIfAbsent(s.ctx, s.newMotif("ACGT"))
			s.NoError(err)
			if added {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	count, _ := s.store.Count(s.ctx)
	s.Equal(1, count)
}
