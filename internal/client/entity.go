package client

import "time"

// Client is an agency customer. Number is the customer code printed on jobs.
type Client struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Number    string    `yaml:"number" json:"clientNumber"`
	Phone     string    `yaml:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updatedAt"`
}
