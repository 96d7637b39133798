package mqtt

import (
	"fmt"
	"time"
)

type HealthStatus struct {
	Connected bool      `json:"connected"`
	Broker    string    `json:"broker"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Health() HealthStatus {
	return HealthStatus{
		Connected: c.IsConnected(),
		Broker:    fmt.Sprintf("%s:%d", c.cfg.Broker, c.cfg.Port),
		ClientID:  c.cfg.ClientID,
		Timestamp: time.Now(),
	}
}
