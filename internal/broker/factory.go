package broker

import (
	"errors"
	"fmt"
	"sync"

	"monitorss/internal/config"
	"monitorss/internal/logger"
)

var ErrBrokerClosed = errors.New("broker is closed")

var (
	sharedMemoryOnce sync.Once
	sharedMemory     *MemoryBroker
)

// SharedMemoryBroker is the process-wide broker used for the "memory" type.
func SharedMemoryBroker() *MemoryBroker {
	sharedMemoryOnce.Do(func() {
		sharedMemory = NewMemoryBroker()
	})
	return sharedMemory
}

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log), nil
	case "memory":
		return SharedMemoryBroker(), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaConsumer(cfg.Kafka, log), nil
	case "memory":
		return NewMemoryConsumer(SharedMemoryBroker(), cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
