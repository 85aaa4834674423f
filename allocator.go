package sitetraffic

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/stat/distuv"
)

// Hourly delivery weight curve 07:00-17:00. Two peaks at 10 and 14, nothing
// over the lunch break.
var deliveryHourWeights = map[int]float64{
	7:  1,
	8:  2,
	9:  5,
	10: 5,
	11: 3,
	12: 0,
	13: 0,
	14: 5,
	15: 5,
	16: 2,
	17: 1,
}

// HourlyDeliveryAllocation Deterministic split of one day's deliveries across hours
type HourlyDeliveryAllocation map[int]int

// Total returns the sum over all hours
func (a HourlyDeliveryAllocation) Total() int {
	total := 0
	for _, n := range a {
		total += n
	}
	return total
}

// DeliveryAllocator Distributes a day's delivery total over the delivery
// hours with a seeded multinomial draw. An allocation is drawn once per
// (project, date) and memoized: redrawing would hand downstream consumers a
// different split for the same inputs.
type DeliveryAllocator struct {
	mu    sync.Mutex
	cache map[string]HourlyDeliveryAllocation

	hours   []int
	weights []float64
}

// NewDeliveryAllocator creates allocator with the fixed bimodal weight curve
func NewDeliveryAllocator() *DeliveryAllocator {
	hours := make([]int, 0, len(deliveryHourWeights))
	for h := range deliveryHourWeights {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	weightSum := 0.0
	for _, w := range deliveryHourWeights {
		weightSum += w
	}
	weights := make([]float64, len(hours))
	for i, h := range hours {
		weights[i] = deliveryHourWeights[h] / weightSum
	}
	return &DeliveryAllocator{
		cache:   make(map[string]HourlyDeliveryAllocation),
		hours:   hours,
		weights: weights,
	}
}

func allocationSeed(projectID, date string) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s::%s", projectID, date))
}

// Allocate returns the hourly allocation for given project, date and daily
// delivery total. Repeated calls with the same key return the identical map.
func (a *DeliveryAllocator) Allocate(projectID, date string, total int) HourlyDeliveryAllocation {
	key := fmt.Sprintf("%s::%s", projectID, date)

	a.mu.Lock()
	defer a.mu.Unlock()
	if cached, ok := a.cache[key]; ok {
		return cached
	}

	allocation := make(HourlyDeliveryAllocation, len(a.hours))
	for _, h := range a.hours {
		allocation[h] = 0
	}
	if total > 0 {
		seed := allocationSeed(projectID, date)
		dist := distuv.NewCategorical(a.weights, rand.NewPCG(seed, seed))
		for i := 0; i < total; i++ {
			allocation[a.hours[int(dist.Rand())]]++
		}
	}
	a.cache[key] = allocation
	return allocation
}

// DeliveriesAt returns the delivery count for one hour of the day
func (a *DeliveryAllocator) DeliveriesAt(projectID, date string, hour, total int) int {
	return a.Allocate(projectID, date, total)[hour]
}

// Invalidate drops all cached allocations of one project
func (a *DeliveryAllocator) Invalidate(projectID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prefix := projectID + "::"
	for key := range a.cache {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(a.cache, key)
		}
	}
}
