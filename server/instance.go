package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wereliang/raftlog/log"
)

type Instance interface {
	Start() error
	Stop() error
	Log() log.Log
	Addr() string
}

// NewInstance builds the log described by config and the service exposing it.
func NewInstance(config *Config) (Instance, error) {
	err := config.Check()
	if err != nil {
		return nil, err
	}

	var (
		raftLog  log.Log = log.NewMemLog(log.WithFloor(config.MemLog.Floor))
		gatherer prometheus.Gatherer
	)
	if config.MemLog.Metrics {
		reg := prometheus.NewRegistry()
		raftLog, err = log.NewInstrumentedLog(raftLog, reg)
		if err != nil {
			return nil, err
		}
		gatherer = reg
	}

	return &instanceImpl{
		config:  config,
		raftLog: raftLog,
		service: NewService(raftLog, config.Server.Addr, gatherer),
	}, nil
}

type instanceImpl struct {
	config  *Config
	raftLog log.Log
	service *Service
}

func (obj *instanceImpl) Start() error {
	return obj.service.Start()
}

func (obj *instanceImpl) Stop() error {
	timeout := time.Duration(obj.config.Server.ShutdownTimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return obj.service.Stop(ctx)
}

func (obj *instanceImpl) Log() log.Log {
	return obj.raftLog
}

func (obj *instanceImpl) Addr() string {
	return obj.service.Addr()
}
