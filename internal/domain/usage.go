package domain

import "time"

// Usage tracks token consumption for one completed request.
type Usage struct {
	TokensIn  int `json:"in"`
	TokensOut int `json:"out"`
}

// UsageRecord is the quota-accounting row written once per request.
type UsageRecord struct {
	UserID    string    `json:"userId"`
	Kind      Kind      `json:"kind"`
	TokensIn  int       `json:"tokensIn"`
	TokensOut int       `json:"tokensOut"`
	CreatedAt time.Time `json:"createdAt"`
}
