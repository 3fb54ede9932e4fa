package mocks

//go:generate mockgen -destination=./mock_fetcher.go -package=mocks QuantSentinel/internal/collector Fetcher
//go:generate mockgen -destination=./mock_notifier.go -package=mocks QuantSentinel/internal/notifier SignalNotifier
