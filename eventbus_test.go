package luminara

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusSubscribeAndPublish(t *testing.T) {
	bus := &EventBus{}
	received := 0
	Subscribe(bus, func(e TestEvent) {
		received += e.Value
	})
	Subscribe(bus, func(e TestEvent) {
		received += e.Value * 2
	})
	Publish(bus, TestEvent{Value: 1})
	assert.Equal(t, 3, received)
	Publish(bus, TestEvent{Value: 2})
	assert.Equal(t, 3+6, received)
}

func TestEventBusMultipleTypes(t *testing.T) {
	bus := NewEventBus()
	received1 := 0
	received2 := 0
	Subscribe(bus, func(e TestEvent) {
		received1 += e.Value
	})
	Subscribe(bus, func(p Position) {
		received2 += int(p.X)
	})
	Publish(bus, TestEvent{Value: 42})
	Publish(bus, Position{X: 10})
	assert.Equal(t, 42, received1)
	assert.Equal(t, 10, received2)
}

func TestEventBusNoHandlers(t *testing.T) {
	bus := &EventBus{}
	assert.NotPanics(t, func() { Publish(bus, TestEvent{Value: 42}) })
	var nilBus *EventBus
	assert.NotPanics(t, func() { Publish(nilBus, TestEvent{Value: 42}) })
}

func TestEventBusOrder(t *testing.T) {
	bus := NewEventBus()
	var order []int
	for i := range 5 {
		Subscribe(bus, func(TestEvent) { order = append(order, i) })
	}
	Publish(bus, TestEvent{})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEventBusConcurrentPublish(t *testing.T) {
	bus := NewEventBus()
	var mu sync.Mutex
	total := 0
	Subscribe(bus, func(e TestEvent) {
		mu.Lock()
		total += e.Value
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				Publish(bus, TestEvent{Value: 1})
			}
		})
	}
	wg.Go(func() {
		for range 100 {
			Subscribe(bus, func(Health) {})
		}
	})
	wg.Wait()
	assert.Equal(t, 800, total)
}
