package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConjunction(t *testing.T) {
	cases := []struct {
		name    string
		members []Status
		want    Status
	}{
		{"empty is pass", nil, Pass},
		{"all pass", []Status{Pass, Pass}, Pass},
		{"fail wins over skip", []Status{Pass, Skip, Fail}, Fail},
		{"skip among passes is inert", []Status{Pass, Skip}, Pass},
		{"all skip is skip", []Status{Skip, Skip}, Skip},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Conjunction(c.members))
		})
	}
}

func TestElementAggregate(t *testing.T) {
	cases := []struct {
		name    string
		members []Status
		want    Status
	}{
		{"empty is skip", nil, Skip},
		{"all skip is skip", []Status{Skip, Skip}, Skip},
		{"one pass among skips is pass", []Status{Skip, Pass, Skip}, Pass},
		{"any fail wins", []Status{Pass, Fail, Skip}, Fail},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ElementAggregate(c.members))
		})
	}
}

func TestDisjunction(t *testing.T) {
	cases := []struct {
		name    string
		members []Status
		want    Status
	}{
		{"empty is fail", nil, Fail},
		{"any pass wins immediately", []Status{Fail, Pass, Skip}, Pass},
		{"skip never vetoes a fail", []Status{Fail, Skip}, Fail},
		{"all skip is skip", []Status{Skip, Skip}, Skip},
		{"all fail is fail", []Status{Fail, Fail}, Fail},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Disjunction(c.members))
		})
	}
}
