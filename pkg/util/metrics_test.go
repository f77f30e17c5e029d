package util

import (
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/stretchr/testify/assert"
)

func TestSampler(t *testing.T) {
	s := NewSampler(4)
	hits := 0
	for i := 0; i < 16; i++ {
		if s.Tick() {
			hits++
		}
	}
	assert.Equal(t, 4, hits)

	every := NewSampler(0)
	assert.True(t, every.Tick())
	assert.True(t, every.Tick())
}

func TestMockWriteAPIKeepsPoints(t *testing.T) {
	m := &MockWriteAPI{}
	m.WritePoint(influxdb2.NewPoint("x", map[string]string{"a": "b"}, map[string]interface{}{"v": 1}, time.Now()))
	assert.Len(t, m.Points(), 1)
	assert.Equal(t, "x", m.Points()[0].Name())
}
