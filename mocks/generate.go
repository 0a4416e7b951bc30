package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/quantleap/intraday-engine/internal/broker Broker
