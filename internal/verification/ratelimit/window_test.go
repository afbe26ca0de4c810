package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verigate/pkg/requestcontext"
)

const (
	testLimit  = 3
	testWindow = time.Minute
)

type WindowSuite struct {
	suite.Suite
	limiter *Window
	now     time.Time
}

func TestWindowSuite(t *testing.T) {
	suite.Run(t, new(WindowSuite))
}

func (s *WindowSuite) SetupTest() {
	s.limiter = New()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *WindowSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *WindowSuite) TestAllow() {
	s.Run("first attempt allowed", func() {
		res, err := s.limiter.Allow(s.at(0), "first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(testLimit-1, res.Remaining)
		s.Equal(testLimit, res.Limit)
		s.True(res.ResetAt.Equal(s.now.Add(testWindow)))
	})

	s.Run("attempt over limit denied", func() {
		for range testLimit {
			res, err := s.limiter.Allow(s.at(0), "over", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(res.Allowed)
		}
		res, err := s.limiter.Allow(s.at(time.Second), "over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining)
	})

	s.Run("window slides", func() {
		for i := range testLimit {
			_, err := s.limiter.Allow(s.at(time.Duration(i)*10*time.Second), "slide", testLimit, testWindow)
			s.Require().NoError(err)
		}
		// The first attempt (t=0) has aged out; the other two have not.
		res, err := s.limiter.Allow(s.at(testWindow+time.Second), "slide", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(0, res.Remaining)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, _ = s.limiter.Allow(s.at(0), "busy", testLimit, testWindow)
		}
		res, err := s.limiter.Allow(s.at(0), "quiet", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *WindowSuite) TestReset() {
	for range testLimit {
		_, _ = s.limiter.Allow(s.at(0), "reset", testLimit, testWindow)
	}
	s.Require().NoError(s.limiter.Reset(context.Background(), "reset"))

	res, err := s.limiter.Allow(s.at(0), "reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *WindowSuite) TestConcurrentAttemptsNeverExceedLimit() {
	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.limiter.Allow(s.at(0), "shared", testLimit, testWindow)
			s.NoError(err)
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
	s.Equal(1, s.limiter.Len())
}
