package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"home/sensors/dev1", "home/sensors/dev1", true},
		{"home/sensors/dev1", "home/sensors/dev2", false},
		{"home/sensors/#", "home/sensors/dev1", true},
		{"home/sensors/#", "home/sensors/dev1/status", true},
		{"home/sensors/#", "home/actuators/dev1", false},
		{"home/+/dev1", "home/sensors/dev1", true},
		{"home/+/dev1", "home/sensors/dev2", false},
		{"home/+", "home/sensors/dev1", false},
		{"home/sensors/+", "home/sensors", false},
		{"#", "anything/at/all", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchTopic(tt.pattern, tt.topic),
			"pattern %q vs topic %q", tt.pattern, tt.topic)
	}
}
