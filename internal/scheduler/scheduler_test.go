package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"QuantSentinel/internal/collector"
	"QuantSentinel/internal/config"
	"QuantSentinel/internal/metrics"
	"QuantSentinel/internal/model"
	"QuantSentinel/internal/pipeline"
	"QuantSentinel/internal/recorder"
	"QuantSentinel/mocks"
)

type SchedulerTestSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	fetcher  *mocks.MockFetcher
	notifier *mocks.MockSignalNotifier
	start    time.Time
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.fetcher = mocks.NewMockFetcher(suite.ctrl)
	suite.fetcher.EXPECT().Name().Return("yahoo").AnyTimes()
	suite.notifier = mocks.NewMockSignalNotifier(suite.ctrl)
	suite.start = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
}

// reversal returns minute bars that fall for 100 hours and then rise for 50,
// which produces a single BUY at hour 111.
func (suite *SchedulerTestSuite) reversal() []model.OHLCV {
	const minutes = 150 * 60
	bars := make([]model.OHLCV, 0, minutes)
	for m := 1; m <= minutes; m++ {
		h := float64(m) / 60
		p := 200 - h
		if h > 100 {
			p = 100 + 2*(h-100)
		}
		bars = append(bars, model.OHLCV{
			Time: suite.start.Add(time.Duration(m) * time.Minute),
			Open: p, High: p + 0.1, Low: p - 0.1, Close: p, Volume: 10,
		})
	}
	return bars
}

func (suite *SchedulerTestSuite) newScheduler(rec recorder.Recorder, symbols ...string) *Scheduler {
	p, err := pipeline.New(config.DefaultAnalysis())
	suite.Require().NoError(err)
	m := metrics.New(prometheus.NewRegistry())
	logger := zaptest.NewLogger(suite.T())
	col := collector.NewCollector(suite.fetcher, nil, p, 7, m, logger)
	return NewScheduler(suite.ctx, col, suite.notifier, rec, symbols, m, logger)
}

func (suite *SchedulerTestSuite) expectBuy(symbol string) *gomock.Call {
	return suite.notifier.EXPECT().NotifySignal(gomock.Any(), symbol,
		gomock.Cond(func(sig model.Signal) bool {
			return sig.Direction == model.DirectionBuy && sig.Time.Equal(suite.start.Add(111*time.Hour))
		}),
		gomock.Any())
}

func (suite *SchedulerTestSuite) TestRefreshAnnouncesOnce() {
	s := suite.newScheduler(nil, "TCS.NS")
	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), "TCS.NS", 7).Return(suite.reversal(), nil).Times(2)
	suite.expectBuy("TCS.NS").Return(nil).Times(1)

	suite.Require().NoError(s.Refresh(suite.ctx, "TCS.NS"))
	suite.Require().NoError(s.Refresh(suite.ctx, "TCS.NS"))

	snap, ok := s.Snapshot("TCS.NS")
	suite.Require().True(ok)
	suite.Equal("yahoo", snap.Source)
	suite.Len(snap.Result.Signals, 1)
}

func (suite *SchedulerTestSuite) TestOverlappingRefreshesAnnounceOnce() {
	s := suite.newScheduler(nil, "TCS.NS")
	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), "TCS.NS", 7).Return(suite.reversal(), nil).MinTimes(1).MaxTimes(2)
	suite.expectBuy("TCS.NS").DoAndReturn(func(context.Context, string, model.Signal, model.IndicatorRow) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}).Times(1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Refresh(suite.ctx, "TCS.NS")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		suite.NoError(err)
	}
}

func (suite *SchedulerTestSuite) TestFailedNotificationIsRetried() {
	s := suite.newScheduler(nil, "TCS.NS")
	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), "TCS.NS", 7).Return(suite.reversal(), nil).Times(3)
	gomock.InOrder(
		suite.expectBuy("TCS.NS").Return(errors.New("telegram down")),
		suite.expectBuy("TCS.NS").Return(nil),
	)

	for i := 0; i < 3; i++ {
		suite.Require().NoError(s.Refresh(suite.ctx, "TCS.NS"))
	}
}

func (suite *SchedulerTestSuite) TestRestartDoesNotRepeatAlert() {
	path := filepath.Join(suite.T().TempDir(), "sentinel.db")
	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), "TCS.NS", 7).Return(suite.reversal(), nil).Times(2)
	suite.expectBuy("TCS.NS").Return(nil).Times(1)

	rec, err := recorder.NewSQLiteRecorder(path, nil)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.newScheduler(rec, "TCS.NS").Refresh(suite.ctx, "TCS.NS"))
	suite.Require().NoError(rec.Close())

	rec, err = recorder.NewSQLiteRecorder(path, nil)
	suite.Require().NoError(err)
	defer rec.Close()
	suite.Require().NoError(suite.newScheduler(rec, "TCS.NS").Refresh(suite.ctx, "TCS.NS"))

	recent, err := rec.RecentSignals(suite.ctx, "TCS.NS", 10)
	suite.Require().NoError(err)
	suite.Len(recent, 1)
}

func (suite *SchedulerTestSuite) TestRefreshAllKeepsGoingAfterFailure() {
	s := suite.newScheduler(nil, "TCS.NS", "INFY.NS")
	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), "TCS.NS", 7).Return(suite.reversal(), nil)
	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), "INFY.NS", 7).Return(nil, errors.New("delisted"))
	suite.expectBuy("TCS.NS").Return(nil)

	err := s.RefreshAll(suite.ctx)
	suite.ErrorContains(err, "refresh INFY.NS")

	_, ok := s.Snapshot("TCS.NS")
	suite.True(ok)
	_, ok = s.Snapshot("INFY.NS")
	suite.False(ok)
}

func (suite *SchedulerTestSuite) TestHandleCommand() {
	s := suite.newScheduler(nil, "TCS.NS", "INFY.NS")

	suite.Contains(s.HandleCommand(suite.ctx, "hello"), "Available commands")
	suite.Contains(s.HandleCommand(suite.ctx, ""), "Available commands")
	suite.Equal("Usage: /signal SYMBOL", s.HandleCommand(suite.ctx, "/signal"))
	suite.Equal("No data for TCS.NS yet, try /refresh.", s.HandleCommand(suite.ctx, "/signal tcs.ns"))
	suite.Contains(s.HandleCommand(suite.ctx, "/signals TCS.NS"), "No signals yet.")
	suite.Equal("Symbols: TCS.NS, INFY.NS", s.HandleCommand(suite.ctx, "/symbols"))

	suite.fetcher.EXPECT().FetchMinuteBars(gomock.Any(), gomock.Any(), 7).Return(suite.reversal(), nil).Times(2)
	suite.expectBuy("TCS.NS").Return(nil)
	suite.expectBuy("INFY.NS").Return(nil)
	suite.Equal("✅ refreshed 2 symbol(s)", s.HandleCommand(suite.ctx, "/refresh@QuantSentinelBot"))

	report := s.HandleCommand(suite.ctx, "/signal TCS.NS")
	suite.Contains(report, "Source: yahoo | minute bars: 9000 | buckets: 150")
	suite.Contains(report, "BUY @ ")
	suite.Contains(s.HandleCommand(suite.ctx, "/signals TCS.NS"), "BUY")
	suite.Contains(s.HandleCommand(suite.ctx, "/indicators INFY.NS"), "INFY.NS indicators")
}

func (suite *SchedulerTestSuite) TestSingleSymbolArgumentIsOptional() {
	s := suite.newScheduler(nil, "TCS.NS")
	suite.Equal("No data for TCS.NS yet, try /refresh.", s.HandleCommand(suite.ctx, "/indicators"))
}

func (suite *SchedulerTestSuite) TestRegisterAll() {
	s := suite.newScheduler(nil, "TCS.NS")
	suite.NoError(s.RegisterAll("0 * * * * *"))
	suite.Len(s.Cron.Entries(), 1)
	suite.Error(s.RegisterAll("not a cron"))

	s.Start()
	s.Stop()
}
