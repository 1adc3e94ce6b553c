package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func passing(name string) Checker {
	return NewFuncChecker(name, func(context.Context) error { return nil })
}

func failing(name string) Checker {
	return NewFuncChecker(name, func(context.Context) error { return errors.New(name + " down") })
}

func TestCheckerRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		required []Checker
		optional []Checker
		want     Status
	}{
		{name: "no checks", want: StatusHealthy},
		{name: "all passing", required: []Checker{passing("postgresql")}, optional: []Checker{passing("redis")}, want: StatusHealthy},
		{name: "optional failing", required: []Checker{passing("postgresql")}, optional: []Checker{failing("redis")}, want: StatusDegraded},
		{name: "required failing", required: []Checker{failing("postgresql")}, optional: []Checker{failing("redis")}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.required {
				r.Register(c)
			}
			for _, c := range tt.optional {
				r.RegisterOptional(c)
			}

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.required)+len(tt.optional))
		})
	}
}

func TestCheckerRegistry_ReportsMessage(t *testing.T) {
	r := NewCheckerRegistry()
	r.RegisterOptional(failing("redis"))

	h := r.Check(context.Background())
	assert.Equal(t, StatusDegraded, h.Checks["redis"].Status)
	assert.Equal(t, "redis down", h.Checks["redis"].Message)
}
