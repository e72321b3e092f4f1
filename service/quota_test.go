package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaAllowed(t *testing.T) {
	tests := []struct {
		name    string
		current int
		max     int
		want    bool
	}{
		{"under quota", 0, 2, true},
		{"one below quota", 1, 2, true},
		{"at quota", 2, 2, false},
		{"over quota", 3, 2, false},
		{"zero max means unlimited", 50, 0, true},
		{"negative max means unlimited", 50, -1, true},
		{"quota of one", 0, 1, true},
		{"quota of one exhausted", 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuotaAllowed(tt.current, tt.max))
		})
	}
}
